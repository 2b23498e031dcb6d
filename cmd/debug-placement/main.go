package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"

	"github.com/sudorandom/donation-lights/pkg/app"
	"github.com/sudorandom/donation-lights/pkg/geo"
	"github.com/sudorandom/donation-lights/pkg/lightsengine"
	"github.com/sudorandom/donation-lights/pkg/placement"
	"github.com/sudorandom/donation-lights/pkg/sources"
	"github.com/sudorandom/donation-lights/pkg/utils"
)

var cli struct {
	app.ConfigFlags `embed:""`

	Total    float64 `help:"Campaign total to simulate." default:"49000"`
	Donation float64 `help:"Extra donation added after the initial total, in currency units."`
	Top      int     `help:"Countries to list." default:"25"`
	Seed     int64   `help:"Random seed. Zero picks one from the clock."`
	MaxTicks int     `help:"Give up after this many frames." default:"10000"`
}

// Stats summarises a finished simulation.
type Stats struct {
	Total       float64
	Points      int
	Highlighted int
	Region      int
	Pending     int
	Ticks       int
	Elapsed     time.Duration
	ByCountry   map[string]int
}

// Simulate drives the engine without a window until placement drains or
// maxTicks frames pass.
func Simulate(e *lightsengine.Engine, m *geo.Map, region []string, total, donation float64, maxTicks int) Stats {
	start := time.Now()
	e.SetMap(m)
	e.SetAmount(total)

	st := Stats{Total: total + donation, ByCountry: map[string]int{}}
	now := time.Now()
	run := func() {
		for ; st.Ticks < maxTicks; st.Ticks++ {
			now = now.Add(time.Second / 60)
			e.Tick(now)
			if e.SchedulerState() == lightsengine.LoopIdle {
				return
			}
		}
	}
	run()
	if donation > 0 {
		e.AddDonation(donation)
		run()
	}

	inRegion := map[string]bool{}
	for _, c := range region {
		inRegion[placement.NormalizeCode(c)] = true
	}
	codes := make(map[string]string, len(m.Countries()))
	for _, c := range m.Countries() {
		codes[c.ID()] = placement.CountryCode(c)
	}
	for _, p := range e.Points() {
		code := codes[p.Country]
		st.ByCountry[code]++
		if inRegion[code] {
			st.Region++
		}
		if p.Kind == placement.Highlighted {
			st.Highlighted++
		}
	}
	st.Points = e.Count()
	r, h := e.Pending()
	st.Pending = r + h
	st.Elapsed = time.Since(start)
	return st
}

// Print writes the summary and the top countries by point count.
func (s Stats) Print(w io.Writer, top int) {
	fmt.Fprintf(w, "\n--- Placement summary (%d frames, %v) ---\n", s.Ticks, s.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "Total:        %.0f\n", s.Total)
	fmt.Fprintf(w, "Points:       %d (%d highlighted, %d still pending)\n", s.Points, s.Highlighted, s.Pending)
	if s.Points > 0 {
		fmt.Fprintf(w, "Region share: %.1f%%\n", 100*float64(s.Region)/float64(s.Points))
	}

	type row struct {
		code  string
		count int
	}
	rows := make([]row, 0, len(s.ByCountry))
	for code, n := range s.ByCountry {
		rows = append(rows, row{code, n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count != rows[j].count {
			return rows[i].count > rows[j].count
		}
		return rows[i].code < rows[j].code
	})
	if top > 0 && len(rows) > top {
		rows = rows[:top]
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COUNTRY\tPOINTS\tSHARE")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%.1f%%\n", r.code, r.count, 100*float64(r.count)/float64(max(s.Points, 1)))
	}
	tw.Flush()
}

func main() {
	kong.Parse(&cli,
		kong.Name("debug-placement"),
		kong.Description("Simulates point placement for a campaign total and reports the distribution."),
		kong.UsageOnError(),
	)

	cfg, err := cli.Load()
	app.SetupLogging(os.Stderr, cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	cache, err := utils.OpenDiskCache(cfg.Map.CacheDir)
	if err != nil {
		log.Warn().Err(err).Msg("Download cache unavailable")
	} else {
		defer cache.Close()
	}
	m, err := sources.LoadWorldMap(context.Background(), cache, cfg.Map.URL, cfg.Map.TTL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load world map")
	}

	opts := app.EngineOptions(cfg)
	if cli.Seed != 0 {
		opts.Seed = cli.Seed
	}
	e := lightsengine.NewEngine(opts)

	st := Simulate(e, m, cfg.RegionCountries, cli.Total, cli.Donation, cli.MaxTicks)
	st.Print(os.Stdout, cli.Top)
}
