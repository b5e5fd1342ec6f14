package channel

import (
	"math"

	"github.com/vanet-sim/vanet-sim/sim"
)

const (
	// speedOfLight in metres per second.
	speedOfLight = 3e8
	// minDistance keeps co-located nodes out of the log10 singularity.
	minDistance = 1.0
	// thermalNoiseDBmPerHz is kT at 290 K.
	thermalNoiseDBmPerHz = -174.0
)

// Link evaluates the link budget of one channel configuration.
type Link struct {
	cfg     sim.ChannelConfig
	profile Profile
	noise   float64 // dBm over the whole bandwidth
}

// NewLink validates cfg and precomputes the noise floor.
func NewLink(cfg sim.ChannelConfig) (*Link, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p, err := LookupProfile(cfg.Profile)
	if err != nil {
		return nil, err
	}
	return &Link{
		cfg:     cfg,
		profile: p,
		noise:   thermalNoiseDBmPerHz + 10*math.Log10(cfg.BandwidthHz) + cfg.NoiseFigureDB,
	}, nil
}

// Profile returns the path-loss profile in use.
func (l *Link) Profile() Profile { return l.profile }

// NoiseDBm returns the receiver noise floor.
func (l *Link) NoiseDBm() float64 { return l.noise }

// SNRDB returns the received signal-to-noise ratio at distance d.
func (l *Link) SNRDB(d float64) float64 {
	return l.cfg.TxPowerDBm + l.cfg.AntennaGainDB - l.profile.PathLossDB(d, l.cfg.FrequencyHz) - l.noise
}

// SuccessProbability is a logistic curve in the SNR margin, divided by
// 1+penalty*contenders. It decreases in both distance and contenders.
func (l *Link) SuccessProbability(d float64, contenders int) float64 {
	margin := (l.SNRDB(d) - l.cfg.SNRThresholdDB) / l.cfg.SNRScaleDB
	base := 1 / (1 + math.Exp(-margin))
	return base / (1 + l.cfg.ContentionPenalty*float64(contenders))
}

// BandwidthShare is the fraction of the channel a new grant receives when
// contenders grants are already active nearby.
func BandwidthShare(contenders int) float64 {
	return 1 / float64(1+contenders)
}

// SpectralEfficiency is Shannon capacity per Hz at distance d, capped at
// the configured maximum.
func (l *Link) SpectralEfficiency(d float64) float64 {
	snr := math.Pow(10, l.SNRDB(d)/10)
	return math.Min(math.Log2(1+snr), l.cfg.MaxSpectralEff)
}

// SerializationDelay is the time to push sizeBytes through share of the
// channel at distance d.
func (l *Link) SerializationDelay(sizeBytes int, d, share float64) sim.SimTime {
	rate := share * l.cfg.BandwidthHz * l.SpectralEfficiency(d)
	return sim.Seconds(float64(sizeBytes) * 8 / rate)
}

// PropagationDelay is d/c, with d floored at one metre.
func PropagationDelay(d float64) sim.SimTime {
	return sim.Seconds(math.Max(d, minDistance) / speedOfLight)
}
