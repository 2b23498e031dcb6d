package lightsengine

// Animator keeps full redraws going while points are blinking.
type Animator struct {
	renderer *Renderer
	state    LoopState
}

func NewAnimator(r *Renderer) *Animator {
	return &Animator{renderer: r}
}

func (a *Animator) State() LoopState { return a.state }

func (a *Animator) eligible(population int) bool {
	return population > 0 && a.renderer.Blinking(population)
}

// Start moves the loop to running if blinking applies. Repeated calls are
// harmless.
func (a *Animator) Start(population int) bool {
	if a.state == LoopRunning || !a.eligible(population) {
		return false
	}
	a.state = LoopRunning
	return true
}

// Step reports whether a full redraw is due this frame. Once blinking no
// longer applies it asks for one last redraw and goes idle.
func (a *Animator) Step(population int) bool {
	if a.state != LoopRunning {
		return false
	}
	if !a.eligible(population) {
		a.state = LoopIdle
	}
	return true
}
