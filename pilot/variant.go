package pilot

import (
	"fmt"
	"strings"
)

// Variant bundles the rules and search settings of one game mode
type Variant struct {
	Name   string
	Rules  Rules
	Config Config
}

// Classic is the despawn arena: absolute heading, thrust in [0.1, 0.3),
// longest-survivor selection and a coasting fallback.
func Classic() Variant {
	return Variant{
		Name:  "classic",
		Rules: ClassicRules(),
		Config: Config{
			SimCount:    DefaultSimCount,
			SimDuration: DefaultSimDuration,
			MinDuration: DefaultMinDuration,
			MaxSimCount: DefaultMaxSimCount,
			Selection:   SelectLongest,
			Sampler:     UniformSampler{ThrustMin: 0.1, ThrustMax: 0.3},
			Fallback:    Control{Thrust: 0, Theta: 0},
		},
	}
}

// Wrap is the toroidal arena: relative heading, fixed 0.1 thrust,
// first-survivor selection and a gentle turn as fallback.
func Wrap() Variant {
	return Variant{
		Name:  "wrap",
		Rules: WrapRules(),
		Config: Config{
			SimCount:    DefaultSimCount,
			SimDuration: DefaultSimDuration,
			MinDuration: DefaultSimDuration,
			MaxSimCount: DefaultMaxSimCount,
			Selection:   SelectFirstAlive,
			Sampler:     TurnSampler{Thrust: 0.1, Step: 0.1},
			Fallback:    Control{DTheta: 0.1, Thrust: 0},
		},
	}
}

// VariantByName resolves "classic" or "wrap"
func VariantByName(name string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "classic", "despawn":
		return Classic(), nil
	case "wrap", "toroidal":
		return Wrap(), nil
	}
	return Variant{}, fmt.Errorf("%w: unknown variant %q", ErrInvalidConfig, name)
}
