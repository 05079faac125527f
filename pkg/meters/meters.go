package meters

// Meter names as used in episode content and query parameters.
const (
	Trust     = "trust"
	Chemistry = "chemistry"
	Affection = "affection"
)

// Names lists the meters in display order.
var Names = []string{Trust, Chemistry, Affection}

// Delta bounds for a single turn. Scripted content stays inside these,
// and deltas coming back from the evaluation service are clamped to them.
const (
	MinDelta = -3
	MaxDelta = 3
)

// Meters is the relationship state between the player and the date.
type Meters struct {
	Trust     int `json:"trust"`
	Chemistry int `json:"chemistry"`
	Affection int `json:"affection"`
}

// Delta is one turn's proposed change to Meters.
type Delta struct {
	Trust     int `json:"trust"`
	Chemistry int `json:"chemistry"`
	Affection int `json:"affection"`
}

// Config bounds a single meter.
type Config struct {
	Min   int `json:"min"`
	Max   int `json:"max"`
	Start int `json:"start"`
}

// ConfigSet holds the configuration of all three meters.
type ConfigSet struct {
	Trust     Config `json:"trust"`
	Chemistry Config `json:"chemistry"`
	Affection Config `json:"affection"`
}

// DefaultConfig is the range used by the shipped episode.
var DefaultConfig = ConfigSet{
	Trust:     Config{Min: -3, Max: 6, Start: 0},
	Chemistry: Config{Min: -3, Max: 6, Start: 0},
	Affection: Config{Min: -3, Max: 6, Start: 0},
}

// Start returns the starting meter values.
func (c ConfigSet) Start() Meters {
	return Meters{
		Trust:     c.Trust.Start,
		Chemistry: c.Chemistry.Start,
		Affection: c.Affection.Start,
	}
}

// Get returns the config for the named meter.
func (c ConfigSet) Get(name string) (Config, bool) {
	switch name {
	case Trust:
		return c.Trust, true
	case Chemistry:
		return c.Chemistry, true
	case Affection:
		return c.Affection, true
	}
	return Config{}, false
}

// Get returns the value of the named meter.
func (m Meters) Get(name string) (int, bool) {
	switch name {
	case Trust:
		return m.Trust, true
	case Chemistry:
		return m.Chemistry, true
	case Affection:
		return m.Affection, true
	}
	return 0, false
}

// Get returns the change for the named meter.
func (d Delta) Get(name string) (int, bool) {
	switch name {
	case Trust:
		return d.Trust, true
	case Chemistry:
		return d.Chemistry, true
	case Affection:
		return d.Affection, true
	}
	return 0, false
}

// IsZero reports whether the delta changes nothing.
func (d Delta) IsZero() bool {
	return d.Trust == 0 && d.Chemistry == 0 && d.Affection == 0
}

// ApplyDelta adds d to m and clamps every meter into its configured range.
func ApplyDelta(m Meters, d Delta, cfg ConfigSet) Meters {
	return Meters{
		Trust:     clamp(m.Trust+d.Trust, cfg.Trust.Min, cfg.Trust.Max),
		Chemistry: clamp(m.Chemistry+d.Chemistry, cfg.Chemistry.Min, cfg.Chemistry.Max),
		Affection: clamp(m.Affection+d.Affection, cfg.Affection.Min, cfg.Affection.Max),
	}
}

// ClampDelta limits every axis of d to [MinDelta, MaxDelta].
func ClampDelta(d Delta) Delta {
	return Delta{
		Trust:     clamp(d.Trust, MinDelta, MaxDelta),
		Chemistry: clamp(d.Chemistry, MinDelta, MaxDelta),
		Affection: clamp(d.Affection, MinDelta, MaxDelta),
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
