package meters

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyDelta(t *testing.T) {
	tests := []struct {
		name     string
		start    Meters
		delta    Delta
		expected Meters
	}{
		{
			name:     "simple increase",
			start:    Meters{},
			delta:    Delta{Trust: 1},
			expected: Meters{Trust: 1},
		},
		{
			name:     "mixed signs",
			start:    Meters{Trust: 1, Chemistry: 1},
			delta:    Delta{Trust: -2, Chemistry: -1, Affection: -1},
			expected: Meters{Trust: -1, Chemistry: 0, Affection: -1},
		},
		{
			name:     "clamped at max",
			start:    Meters{Trust: 5, Chemistry: 6, Affection: 4},
			delta:    Delta{Trust: 3, Chemistry: 1, Affection: 2},
			expected: Meters{Trust: 6, Chemistry: 6, Affection: 6},
		},
		{
			name:     "clamped at min",
			start:    Meters{Trust: -2, Chemistry: -3, Affection: 0},
			delta:    Delta{Trust: -3, Chemistry: -1, Affection: -3},
			expected: Meters{Trust: -3, Chemistry: -3, Affection: -3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyDelta(tt.start, tt.delta, DefaultConfig)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestApplyDelta_AlwaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	cfg := DefaultConfig

	for i := 0; i < 5000; i++ {
		m := Meters{
			Trust:     cfg.Trust.Min + rng.Intn(cfg.Trust.Max-cfg.Trust.Min+1),
			Chemistry: cfg.Chemistry.Min + rng.Intn(cfg.Chemistry.Max-cfg.Chemistry.Min+1),
			Affection: cfg.Affection.Min + rng.Intn(cfg.Affection.Max-cfg.Affection.Min+1),
		}
		// Deliberately wider than the legal delta range.
		d := Delta{
			Trust:     rng.Intn(41) - 20,
			Chemistry: rng.Intn(41) - 20,
			Affection: rng.Intn(41) - 20,
		}

		got := ApplyDelta(m, d, cfg)
		for _, name := range Names {
			v, _ := got.Get(name)
			c, _ := cfg.Get(name)
			if v < c.Min || v > c.Max {
				t.Fatalf("meter %s out of range: %d not in [%d, %d] (start %+v, delta %+v)", name, v, c.Min, c.Max, m, d)
			}
		}
	}
}

func TestClampDelta(t *testing.T) {
	got := ClampDelta(Delta{Trust: 10, Chemistry: -7, Affection: 2})
	assert.Equal(t, Delta{Trust: 3, Chemistry: -3, Affection: 2}, got)
}

func TestConfigSet_Start(t *testing.T) {
	cfg := ConfigSet{
		Trust:     Config{Min: -1, Max: 4, Start: 1},
		Chemistry: Config{Min: -1, Max: 4, Start: 2},
		Affection: Config{Min: -1, Max: 4, Start: 0},
	}
	assert.Equal(t, Meters{Trust: 1, Chemistry: 2, Affection: 0}, cfg.Start())
}

func TestGetByName(t *testing.T) {
	m := Meters{Trust: 1, Chemistry: 2, Affection: 3}
	v, ok := m.Get(Chemistry)
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = m.Get("patience")
	assert.False(t, ok)

	d := Delta{Affection: -1}
	v, ok = d.Get(Affection)
	assert.True(t, ok)
	assert.Equal(t, -1, v)
	assert.False(t, d.IsZero())
	assert.True(t, Delta{}.IsZero())
}
