/*
NAME
  config.go

DESCRIPTION
  config.go holds the decoder's construction-time configuration: the
  fixed inputs (sample rate, spreading factor), the bandwidth constant,
  the tunable thresholds the state machine uses, and the quantities
  derived from them.

AUTHORS
  Ella Pietraroia <ella@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package config holds the decoder's configuration: construction
// parameters, named tunable thresholds, and the quantities derived from
// them.
package config

import (
	"github.com/ausocean/utils/logging"
)

// Demodulation method selectors, matching internal/demod.Method.
const (
	DemodTimeDomain = iota
	DemodFreqDomain
)

// Bandwidth is the fixed LoRa channel bandwidth this decoder supports.
const Bandwidth = 125000.0

// Default threshold values, named per the magic constants the decoder's
// state machine uses.
const (
	DefaultUpchirpThreshold   = 0.9
	DefaultSyncThreshold      = 0.99
	DefaultMaxSyncFailures    = 32
	DefaultEdgeThreshold      = 0.2
	DefaultEnergyThreshold    = 0.01
	DefaultMaxEnergyThreshold = 20.0
	// DefaultPreambleDecimation is the stride divisor used by the fast
	// energy scan (samples_per_symbol / 32); named here, per SPEC_FULL.md's
	// supplemented-features note, rather than left as a bare literal.
	DefaultPreambleDecimation = 32
)

// Config holds the decoder's construction parameters and tunable
// thresholds. A new Config must be passed to the constructor; call
// Validate after setting fields and before use.
type Config struct {
	// SampleRate is the input sample rate in hertz.
	SampleRate float64

	// SF is the spreading factor. Valid range is 6-13 at construction;
	// 6 is folded to 12 with a warning, 13 is a fatal configuration error.
	SF uint8

	// CodingRate is the coding rate in effect; forced to 4 at the start of
	// every header decode and replaced by the header-declared value before
	// payload decoding.
	CodingRate int

	// DemodMethod selects between DemodTimeDomain (faster, preferred) and
	// DemodFreqDomain (FFT-based reference method).
	DemodMethod int

	// UpchirpThreshold is the minimum up-chirp correlation score (DETECT)
	// required to proceed to SYNC.
	UpchirpThreshold float64

	// SyncThreshold is the minimum down-chirp correlation score (SYNC)
	// required to proceed to PAUSE.
	SyncThreshold float64

	// MaxSyncFailures is the number of consecutive SYNC correlation
	// failures tolerated before returning to DETECT.
	MaxSyncFailures int

	// EdgeThreshold is the radians-per-sample drop that marks a falling
	// edge in the time-domain demodulator and up-chirp boundary detector.
	EdgeThreshold float64

	// EnergyThreshold is the magnitude threshold used by preamble
	// detection and the DECODE_PAYLOAD end-of-data guard. Runtime-settable
	// via SetAbsThreshold, clamped to [0, MaxEnergyThreshold].
	EnergyThreshold float64

	// MaxEnergyThreshold is the clamp ceiling for EnergyThreshold.
	MaxEnergyThreshold float64

	// PreambleDecimation is the divisor of samples_per_symbol giving the
	// fast energy scan's sample stride.
	PreambleDecimation int

	// Logger receives diagnostic and warning output. Must be set.
	Logger logging.Logger

	// Derived, computed by Validate.
	SamplesPerSymbol int
	NumberOfBins     int
	DecimationFactor int
	DelayAfterSync   int
	HeaderBins       int
}

// Validate defaults unset tunables, folds/rejects an invalid SF, and
// computes the derived quantities. It must be called once after the
// fixed fields are set and before the config is used to build a decoder.
func (c *Config) Validate() error {
	for _, v := range Variables {
		if v.Validate != nil {
			v.Validate(c)
		}
	}

	switch {
	case c.SF == 6:
		c.Logger.Warning("sf 6 is not natively supported, folding to sf 12")
		c.SF = 12
	case c.SF > 12:
		c.Logger.Fatal("sf out of range, must be in [6, 12]", "sf", c.SF)
	case c.SF < 6:
		c.Logger.Fatal("sf out of range, must be in [6, 12]", "sf", c.SF)
	}

	if c.CodingRate == 0 {
		c.CodingRate = 4
	}

	numberOfBins := 1 << c.SF
	samplesPerSymbol := int(c.SampleRate * float64(numberOfBins) / Bandwidth)
	if samplesPerSymbol%numberOfBins != 0 {
		c.Logger.Fatal("samples_per_symbol is not an integer multiple of number_of_bins",
			"samples_per_symbol", samplesPerSymbol, "number_of_bins", numberOfBins)
	}

	c.NumberOfBins = numberOfBins
	c.SamplesPerSymbol = samplesPerSymbol
	c.DecimationFactor = samplesPerSymbol / numberOfBins
	c.DelayAfterSync = samplesPerSymbol / 4
	c.HeaderBins = numberOfBins / 4

	return nil
}

// Update takes a map of configuration variable names and their
// corresponding string values and sets the matching Config fields.
func (c *Config) Update(vars map[string]string) {
	for _, value := range Variables {
		if v, ok := vars[value.Name]; ok && value.Update != nil {
			value.Update(c, v)
		}
	}
}

// LogInvalidField logs that a field was bad or unset and is being
// defaulted to def.
func (c *Config) LogInvalidField(name string, def interface{}) {
	c.Logger.Info(name+" bad or unset, defaulting", name, def)
}

// SymbolsPerSecond returns the LoRa symbol rate implied by the configured
// spreading factor: Bandwidth / number_of_bins.
func (c *Config) SymbolsPerSecond() float64 {
	return Bandwidth / float64(c.NumberOfBins)
}
