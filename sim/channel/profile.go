// Package channel models the shared radio channel: path loss per deployment
// profile, SNR-driven success draws, contention between nearby senders, and
// half-duplex transmission grants delivered as scheduled events.
package channel

import (
	"fmt"
	"math"
	"sort"

	"github.com/vanet-sim/vanet-sim/sim"
)

// Profile is a line-of-sight path-loss model of the form
// PL(dB) = A + B*log10(d[m]) + C*log10(f[GHz]).
type Profile struct {
	Name string
	A    float64
	B    float64
	C    float64
}

// Known deployment profiles. UMa, UMi and InH use the LOS coefficients of
// 3GPP TR 38.901; RMa is approximated by free-space loss.
var profiles = map[string]Profile{
	"UMa": {Name: "UMa", A: 28.0, B: 22.0, C: 20.0},
	"UMi": {Name: "UMi", A: 32.4, B: 21.0, C: 20.0},
	"RMa": {Name: "RMa", A: 32.45, B: 20.0, C: 20.0},
	"InH": {Name: "InH", A: 32.4, B: 17.3, C: 20.0},
}

// LookupProfile returns the named profile, or an error wrapping
// sim.ErrInvalidConfig listing the valid names.
func LookupProfile(name string) (Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return Profile{}, sim.InvalidConfigf("unknown channel profile %q (valid: %v)", name, ProfileNames())
	}
	return p, nil
}

// ProfileNames returns the known profile names in sorted order.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// PathLossDB returns the loss over distance d metres at frequencyHz. Distances
// below one metre are evaluated at one metre.
func (p Profile) PathLossDB(d, frequencyHz float64) float64 {
	d = math.Max(d, minDistance)
	return p.A + p.B*math.Log10(d) + p.C*math.Log10(frequencyHz/1e9)
}

func (p Profile) String() string {
	return fmt.Sprintf("%s(%.2f+%.1flog10(d)+%.0flog10(f))", p.Name, p.A, p.B, p.C)
}

// ValidateConfig checks cfg and its profile name.
func ValidateConfig(cfg sim.ChannelConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	_, err := LookupProfile(cfg.Profile)
	return err
}
