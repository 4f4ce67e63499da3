package urlgen

import (
	"fmt"
	"time"

	"github.com/juju/clock"
)

// Rate is the sampling interval suffix used in observation file names.
type Rate string

const (
	Rate15S Rate = "15S"
	Rate30S Rate = "30S"
)

// Station is a GNSS receiver with a fixed sampling interval.
type Station struct {
	ID   string
	Rate Rate
}

// Target is the (year, day-of-year) pair the archive is organised by.
type Target struct {
	Year int
	Day  int
}

// TargetFor returns the target lag days before ref, in ref's location.
func TargetFor(ref time.Time, lag int) Target {
	d := ref.AddDate(0, 0, -lag)
	return Target{Year: d.Year(), Day: d.YearDay()}
}

func (t Target) String() string {
	return fmt.Sprintf("%d/%03d", t.Year, t.Day)
}

// Path returns the archive path of a station's daily observation file,
// relative to the archive root:
//
//	2024/150/24d/RDSD00DOM_R_20241500000_01D_15S_MO.crx.gz
func Path(t Target, s Station) string {
	return fmt.Sprintf("%d/%03d/%02dd/%s_R_%d%03d0000_01D_%s_MO.crx.gz",
		t.Year, t.Day, t.Year%100, s.ID, t.Year, t.Day, s.Rate)
}

// Catalog holds the configured stations grouped by sampling rate.
type Catalog struct {
	rate15 []string
	rate30 []string
	rates  map[string]Rate
}

// NewCatalog builds a catalog from the two station groups. An identifier
// present in both groups is classified as 15S.
func NewCatalog(rate15, rate30 []string) *Catalog {
	c := &Catalog{
		rate15: append([]string(nil), rate15...),
		rate30: append([]string(nil), rate30...),
		rates:  make(map[string]Rate, len(rate15)+len(rate30)),
	}
	for _, id := range rate30 {
		c.rates[id] = Rate30S
	}
	for _, id := range rate15 {
		c.rates[id] = Rate15S
	}
	return c
}

// Classify reports the sampling rate of a station identifier.
func (c *Catalog) Classify(id string) (Rate, bool) {
	r, ok := c.rates[id]
	return r, ok
}

// Paths returns one archive path per recognised identifier, in input order.
// Unrecognised identifiers produce no path and are returned in unknown.
func (c *Catalog) Paths(t Target, ids []string) (paths, unknown []string) {
	for _, id := range ids {
		rate, ok := c.Classify(id)
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		paths = append(paths, Path(t, Station{ID: id, Rate: rate}))
	}
	return paths, unknown
}

// All returns the paths of every catalogued station, 15S group first.
func (c *Catalog) All(t Target) []string {
	paths := make([]string, 0, len(c.rate15)+len(c.rate30))
	p15, _ := c.Paths(t, c.rate15)
	p30, _ := c.Paths(t, c.rate30)
	paths = append(paths, p15...)
	return append(paths, p30...)
}

// Generator produces the day's path list relative to a clock.
type Generator struct {
	Catalog *Catalog
	Lag     int
	Clock   clock.Clock
}

// Target returns the day that is Lag days before the clock's now.
func (g *Generator) Target() Target {
	clk := g.Clock
	if clk == nil {
		clk = clock.WallClock
	}
	return TargetFor(clk.Now(), g.Lag)
}

// Generate returns the target day and the archive paths for every station.
func (g *Generator) Generate() (Target, []string) {
	t := g.Target()
	return t, g.Catalog.All(t)
}

// GenerateFor is Generate restricted to ids, in the order given. IDs
// missing from the catalog are returned in unknown.
func (g *Generator) GenerateFor(ids []string) (t Target, paths, unknown []string) {
	t = g.Target()
	paths, unknown = g.Catalog.Paths(t, ids)
	return t, paths, unknown
}

// fixedClock reports the same instant forever.
type fixedClock struct {
	clock.Clock
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

// FixedClock returns a clock whose Now is always t. It pins a Generator to
// a chosen reference date.
func FixedClock(t time.Time) clock.Clock {
	return fixedClock{Clock: clock.WallClock, now: t}
}
