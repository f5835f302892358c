/*
NAME
  chirp.go

DESCRIPTION
  chirp.go builds the ideal up-chirp and down-chirp of one LoRa symbol,
  along with their instantaneous-frequency vectors, once at decoder
  construction.

AUTHORS
  Ella Pietraroia <ella@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package chirp builds the ideal reference chirps that the decoder
// correlates incoming samples against.
package chirp

import "github.com/ausocean/lora/internal/numerics"

// Reference holds one symbol's worth of the ideal down-chirp and up-chirp,
// plus their instantaneous-frequency vectors. It is built once at
// construction and never mutated afterwards.
type Reference struct {
	Down     []complex128
	Up       []complex128
	DownFreq []float64
	UpFreq   []float64
}

// Build constructs the reference down-chirp and up-chirp for a symbol of
// samplesPerSymbol complex samples, given the channel bandwidth bw (Hz),
// the sample rate sampleRate (Hz) and the symbol rate symbolsPerSecond
// (symbols/s).
//
// The down-chirp sweeps from +bw/2 down to -bw/2 over the symbol duration;
// the up-chirp is its mirror, obtained by negating the exponent. Both carry
// the same (1+1j) scale factor, so the two are not literal complex
// conjugates; their instantaneous frequencies are negations of each other.
func Build(samplesPerSymbol int, bw, sampleRate, symbolsPerSecond float64) *Reference {
	r := &Reference{
		Down:     make([]complex128, samplesPerSymbol),
		Up:       make([]complex128, samplesPerSymbol),
		DownFreq: make([]float64, samplesPerSymbol),
		UpFreq:   make([]float64, samplesPerSymbol),
	}

	dt := 1.0 / sampleRate
	f0 := bw / 2.0
	T := -0.5 * bw * symbolsPerSecond
	const preDir = 2.0 * 3.14159265358979323846
	cmx := complex(1.0, 1.0)

	for i := 0; i < samplesPerSymbol; i++ {
		t := dt * float64(i)
		phase := preDir * t * (f0 + T*t)
		r.Down[i] = cmx * numerics.Expj(phase)
		r.Up[i] = cmx * numerics.Expj(-phase)
	}

	numerics.InstantaneousFrequency(r.Down, r.DownFreq)
	numerics.InstantaneousFrequency(r.Up, r.UpFreq)

	return r
}
