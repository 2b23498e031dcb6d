package placement

import (
	"strings"
	"time"

	"github.com/biter777/countries"

	"github.com/sudorandom/donation-lights/pkg/geo"
)

// DefaultRegionCountries are the campaign focus countries in South America
// and southern Africa.
var DefaultRegionCountries = []string{
	"BR", "AR", "PE", "CO", "VE", "CL", "EC", "BO", "PY", "UY", "GY", "SR", "GF", "FK",
	"ZA", "ZW", "BW", "NA", "MZ", "ZM", "MW", "MG", "LS", "SZ", "CD", "AO", "TZ",
}

// DefaultLowPriorityCountries get half weight. Svalbard's bounding box is huge
// relative to its land area.
var DefaultLowPriorityCountries = []string{"SJ"}

const DefaultClassifierTTL = 5 * time.Second

// Buckets is the result of classifying a map.
type Buckets struct {
	Region []*geo.Country
	Global []*geo.Country
}

func (b Buckets) Empty() bool { return len(b.Region) == 0 && len(b.Global) == 0 }

// Classifier splits map countries into region and global buckets. Results are
// cached per map generation for TTL.
type Classifier struct {
	TTL time.Duration
	Now func() time.Time

	region      map[string]bool
	lowPriority map[string]bool
	excluded    map[string]bool

	cached    *Buckets
	cachedGen uint64
	cachedAt  time.Time
}

func NewClassifier(region, lowPriority, excluded []string) *Classifier {
	return &Classifier{
		TTL:         DefaultClassifierTTL,
		Now:         time.Now,
		region:      codeSet(region),
		lowPriority: codeSet(lowPriority),
		excluded:    codeSet(excluded),
	}
}

func codeSet(codes []string) map[string]bool {
	set := make(map[string]bool, len(codes))
	for _, c := range codes {
		if n := NormalizeCode(c); n != "" {
			set[n] = true
		} else if raw := strings.ToUpper(strings.TrimSpace(c)); raw != "" {
			set[raw] = true
		}
	}
	return set
}

// isoKeys are the map attributes that carry an ISO 3166 code, alpha-2 first.
var isoKeys = []string{
	"iso_a2", "iso3166-1-alpha-2", "iso_a2_eh", "wb_a2",
	"iso_a3", "iso3166-1-alpha-3", "iso_a3_eh", "adm0_a3",
}

// NormalizeCode maps an identity string (alpha-2, alpha-3 or English name) to
// an uppercase alpha-2 code. Any two-letter identity is taken as alpha-2.
// Identities that do not resolve return "".
func NormalizeCode(id string) string {
	id = strings.ToUpper(strings.TrimSpace(id))
	if id == "" {
		return ""
	}
	if len(id) == 2 && isLetter(id[0]) && isLetter(id[1]) {
		return id
	}
	if cc := countries.ByName(id); cc != countries.Unknown {
		if a2 := cc.Alpha2(); len(a2) == 2 {
			return a2
		}
	}
	return ""
}

func isLetter(b byte) bool { return b >= 'A' && b <= 'Z' }

// CountryCode is the key a country is classified under. ISO attributes win
// over the display identity. A country whose identity does not resolve keeps
// it verbatim, so it can only match a list entry spelled the same way.
func CountryCode(c *geo.Country) string {
	for _, k := range isoKeys {
		if code := NormalizeCode(c.Attr(k)); code != "" {
			return code
		}
	}
	id := c.ID()
	if code := NormalizeCode(id); code != "" {
		return code
	}
	return strings.ToUpper(strings.TrimSpace(id))
}

// Invalidate drops the cached buckets.
func (c *Classifier) Invalidate() {
	c.cached = nil
}

// Classify returns the region and global buckets for m. Countries without an
// identity, with a degenerate bounding box or on the exclusion list are
// dropped.
func (c *Classifier) Classify(m *geo.Map) Buckets {
	if m == nil {
		return Buckets{}
	}
	now := c.now()
	if c.cached != nil && c.cachedGen == m.Generation() && now.Sub(c.cachedAt) < c.TTL {
		return *c.cached
	}

	b := c.split(m.Countries(), true)
	if b.Empty() {
		b = c.split(m.Countries(), false)
	}
	c.cached = &b
	c.cachedGen = m.Generation()
	c.cachedAt = now
	return b
}

func (c *Classifier) split(all []*geo.Country, useRegion bool) Buckets {
	var b Buckets
	for _, country := range all {
		code := CountryCode(country)
		if code == "" || c.excluded[code] || country.Area() <= 0 {
			continue
		}
		if useRegion && c.region[code] {
			b.Region = append(b.Region, country)
		} else {
			b.Global = append(b.Global, country)
		}
	}
	return b
}

// IsLowPriority reports whether the country's weight is reduced.
func (c *Classifier) IsLowPriority(country *geo.Country) bool {
	return c.lowPriority[CountryCode(country)]
}

func (c *Classifier) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}
