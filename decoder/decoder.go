/*
NAME
  decoder.go

DESCRIPTION
  decoder.go implements the receiver's state machine: DETECT, SYNC, PAUSE,
  DECODE_HEADER, and DECODE_PAYLOAD, driven one symbol window at a time by
  Work. Each state advance reports how many samples it consumed so that a
  host loop can slide its window forward by exactly that amount.

AUTHORS
  Ella Pietraroia <ella@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package decoder implements the LoRa chirp-spread-spectrum physical-layer
// receiver's state machine: preamble detection, sync acquisition, header
// decoding, and payload decoding, built on internal/demod and
// internal/bitstream.
package decoder

import (
	"math/cmplx"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/lora/decoder/config"
	"github.com/ausocean/lora/internal/bitstream"
	"github.com/ausocean/lora/internal/chirp"
	"github.com/ausocean/lora/internal/demod"
	"github.com/ausocean/lora/internal/emit"
	"github.com/ausocean/lora/internal/numerics"
	"github.com/ausocean/lora/internal/tables"
)

// state names the decoder's current position in the DETECT -> SYNC ->
// PAUSE -> DECODE_HEADER -> DECODE_PAYLOAD -> (DETECT | STOP) cycle.
type state int

const (
	stateDetect state = iota
	stateSync
	statePause
	stateDecodeHeader
	stateDecodePayload
	stateStop
)

// codingRateFromNibble maps the low nibble of header byte 1 to the coding
// rate it declares. Any value not in the table defaults to 4, matching the
// original decoder's fallback.
var codingRateFromNibble = map[byte]int{
	0x01: 4,
	0x0F: 3,
	0x0D: 2,
	0x0B: 1,
}

// Decoder holds the state machine's live state for one (sf, sample_rate)
// configuration: the reference chirps, the demodulator, the accumulating
// word buffer and payload bytes, and the frame/debug publishers.
type Decoder struct {
	cfg *config.Config
	log logging.Logger

	ref   *chirp.Reference
	demod *demod.Demodulator

	frames Publisher
	debug  Publisher

	st state

	// syncFailures counts consecutive SYNC correlation failures.
	syncFailures int

	// offsetCorrection is the sample offset recorded by DETECT; DETECT's
	// own consume count on entering SYNC already includes it.
	offsetCorrection int

	// wordBuffer accumulates demodulated codewords for the block currently
	// in progress; drained once it holds 4+codingRate words.
	wordBuffer []uint32

	// demodStream holds deinterleaved-and-appended nibble bytes awaiting
	// deshuffle/dewhiten/Hamming decode.
	demodStream []byte

	// payload accumulates the 3 header bytes followed by payload bytes for
	// the frame currently being decoded.
	payload []byte

	// codingRate is the coding rate in effect: forced to 4 during header
	// decode, replaced by the header-declared value before payload decode.
	codingRate int

	// payloadLength is the header-declared payload length in bytes.
	payloadLength int

	// payloadSymbolsRemaining counts down to zero as payload blocks
	// complete.
	payloadSymbolsRemaining int
}

// Publisher is the sink a Decoder publishes frames and debug blobs through.
type Publisher = emit.Publisher

// New builds a Decoder from a validated Config. frames receives decoded
// frame bytes; debug, if non-nil, receives, for the frequency-domain method
// only, the backward-FFT resample of each header and payload symbol window
// (see publishDebugResample). Raw chirp samples are not published.
func New(cfg *config.Config, frames, debug Publisher) *Decoder {
	symbolsPerSecond := cfg.SymbolsPerSecond()
	ref := chirp.Build(cfg.SamplesPerSymbol, config.Bandwidth, cfg.SampleRate, symbolsPerSecond)

	return &Decoder{
		cfg:        cfg,
		log:        cfg.Logger,
		ref:        ref,
		demod:      demod.New(ref, cfg.SamplesPerSymbol, cfg.NumberOfBins, cfg.DecimationFactor),
		frames:     frames,
		debug:      debug,
		st:         stateDetect,
		codingRate: 4,
	}
}

// SetSF logs a warning and does nothing: the spreading factor cannot be
// changed after construction, matching the original decoder's runtime
// no-op.
func (d *Decoder) SetSF(sf uint8) {
	d.log.Warning("SetSF: spreading factor cannot be changed at runtime, ignoring", "sf", sf)
}

// SetSampleRate logs a warning and does nothing, matching SetSF.
func (d *Decoder) SetSampleRate(rate float64) {
	d.log.Warning("SetSampleRate: sample rate cannot be changed at runtime, ignoring", "rate", rate)
}

// SetAbsThreshold sets the energy threshold used by preamble detection and
// the payload end-of-data guard, clamped to [0, MaxEnergyThreshold].
func (d *Decoder) SetAbsThreshold(v float64) {
	d.cfg.EnergyThreshold = numerics.Clamp(v, 0, d.cfg.MaxEnergyThreshold)
}

// Close releases the Decoder's scratch buffers. There is no background
// goroutine to join: the core has no concurrency of its own.
func (d *Decoder) Close() error {
	d.wordBuffer = nil
	d.demodStream = nil
	d.payload = nil
	return nil
}

// Work advances the state machine by processing one symbol window's worth
// of work out of samples and returns the number of samples consumed. The
// caller must slide its window forward by exactly that amount before the
// next call. It never returns an error during steady-state operation;
// transient correlation failures are handled internally by state
// transitions.
func (d *Decoder) Work(samples []complex64) (consumed int, err error) {
	switch d.st {
	case stateDetect:
		return d.stepDetect(samples), nil
	case stateSync:
		return d.stepSync(samples), nil
	case statePause:
		return d.stepPause(samples), nil
	case stateDecodeHeader:
		return d.stepDecodeHeader(samples), nil
	case stateDecodePayload:
		return d.stepDecodePayload(samples), nil
	default:
		return d.stepStop(samples), nil
	}
}

// Stop transitions the decoder into STOP, where Work drains one symbol per
// call and takes no other action. There is no transition back out of STOP;
// a host that wants to resume must build a new Decoder.
func (d *Decoder) Stop() {
	d.st = stateStop
}

// stepStop drains one symbol per call and does nothing else, matching the
// terminal STOP state.
func (d *Decoder) stepStop(samples []complex64) int {
	sps := d.cfg.SamplesPerSymbol
	if len(samples) < sps {
		return len(samples)
	}
	return sps
}

// State reports the decoder's current state, primarily for tests.
func (d *Decoder) State() string {
	switch d.st {
	case stateDetect:
		return "DETECT"
	case stateSync:
		return "SYNC"
	case statePause:
		return "PAUSE"
	case stateDecodeHeader:
		return "DECODE_HEADER"
	case stateDecodePayload:
		return "DECODE_PAYLOAD"
	default:
		return "STOP"
	}
}

func (d *Decoder) resetToDetect() {
	d.st = stateDetect
	d.payload = nil
	d.wordBuffer = nil
	d.demodStream = nil
	d.codingRate = 4
	d.syncFailures = 0
	d.payloadSymbolsRemaining = 0
	d.payloadLength = 0
}

// stepDetect runs the fast preamble scan, then on a hit cross-correlates
// the up-chirp over two symbols to confirm and measure the boundary
// offset.
func (d *Decoder) stepDetect(samples []complex64) int {
	sps := d.cfg.SamplesPerSymbol
	stride := sps / d.cfg.PreambleDecimation
	if stride <= 0 {
		stride = 1
	}

	idx, found := demod.DetectPreamble(samples, stride, d.cfg.EnergyThreshold)
	if !found {
		return 2 * sps
	}

	window := samples[idx:]
	if len(window) > 2*sps {
		window = window[:2*sps]
	}

	offset, score, ok := d.demod.DetectUpchirp(window, int(d.cfg.SF), d.cfg.EdgeThreshold)
	if !ok || score <= d.cfg.UpchirpThreshold {
		return sps + 1
	}

	d.offsetCorrection = offset
	d.syncFailures = 0
	d.st = stateSync
	return idx + offset
}

// stepSync cross-correlates the current symbol window against the
// reference down-chirp, advancing to PAUSE on a high enough score or
// retrying up to MaxSyncFailures times before returning to DETECT.
func (d *Decoder) stepSync(samples []complex64) int {
	sps := d.cfg.SamplesPerSymbol
	window := samples
	if len(window) > sps {
		window = window[:sps]
	}

	score := d.demod.DetectDownchirp(window)
	if score > d.cfg.SyncThreshold {
		d.st = statePause
		return sps
	}

	d.syncFailures++
	if d.syncFailures >= d.cfg.MaxSyncFailures {
		d.log.Warning("SYNC: lost sync, returning to DETECT", "failures", d.syncFailures)
		d.resetToDetect()
	}
	return sps
}

// stepPause unconditionally advances to DECODE_HEADER, consuming the
// quarter-symbol delay that compensates for sync-chirp alignment.
func (d *Decoder) stepPause(samples []complex64) int {
	d.st = stateDecodeHeader
	d.codingRate = 4
	d.payload = nil
	d.wordBuffer = nil
	d.demodStream = nil
	return d.cfg.SamplesPerSymbol + d.cfg.DelayAfterSync
}

// stepDecodeHeader demodulates one symbol at reduced (header) resolution,
// and once a full block has accumulated, decodes the three header bytes
// and computes how many payload symbols are needed.
func (d *Decoder) stepDecodeHeader(samples []complex64) int {
	sps := d.cfg.SamplesPerSymbol
	window := samples
	if len(window) > sps {
		window = window[:sps]
	}

	method := demodMethod(d.cfg.DemodMethod)
	d.publishDebugResample(window, method)
	word := d.demod.Demodulate(window, method, true, d.cfg.EdgeThreshold)
	d.wordBuffer = append(d.wordBuffer, word)

	blockSize := 4 + d.codingRate
	if len(d.wordBuffer) == blockSize {
		ppm := int(d.cfg.SF) - 2
		deinterleaved := bitstream.Deinterleave(d.wordBuffer, uint(ppm))
		d.wordBuffer = d.wordBuffer[:0]
		d.demodStream = append(d.demodStream, deinterleaved...)

		// The header is exactly one block: 5 bytes deshuffled and removed
		// from the head of the stream, decoded into exactly 3 bytes.
		const headerBytes = 5
		if len(d.demodStream) >= headerBytes {
			chunk := d.demodStream[:headerBytes]
			d.demodStream = d.demodStream[headerBytes:]

			deshuffled := bitstream.Deshuffle(chunk)
			dewhitened := bitstream.Dewhiten(deshuffled, tables.Header[:headerBytes])

			header := make([]byte, 3)
			bitstream.HammingDecode(dewhitened, d.codingRate, header)
			d.payload = append(d.payload, header...)

			d.decodeHeaderBytes()
			d.st = stateDecodePayload
		}
	}

	return sps
}

// accumulatePayloadBlock deinterleaves one completed payload word block and
// appends the resulting bytes to the raw demodulated-nibble stream.
// Deshuffling and dewhitening happen once, over the entire stream, when the
// payload is complete: spec.md draws this distinction explicitly between
// the header (5 bytes, deshuffled immediately) and the payload (the whole
// stream, consumed at the end).
func (d *Decoder) accumulatePayloadBlock() {
	ppm := int(d.cfg.SF)
	deinterleaved := bitstream.Deinterleave(d.wordBuffer, uint(ppm))
	d.wordBuffer = d.wordBuffer[:0]
	d.demodStream = append(d.demodStream, deinterleaved...)
}

// decodePayload deshuffles and dewhitens the entire accumulated payload
// stream, Hamming-decodes it, and returns exactly payloadLength bytes.
func (d *Decoder) decodePayload() []byte {
	deshuffled := bitstream.Deshuffle(d.demodStream)

	prng := tables.Payload(d.cfg.SF)
	m := len(prng)
	if m > len(deshuffled) {
		m = len(deshuffled)
	}
	dewhitened := bitstream.Dewhiten(deshuffled[:m], prng[:m])

	out := make([]byte, d.payloadLength)
	bitstream.HammingDecode(dewhitened, d.codingRate, out)
	return out
}

// decodeHeaderBytes extracts payload_length and coding_rate from the first
// three decoded header bytes and computes the number of payload symbols
// needed. d.payload[0] is rewritten from the wire's nibble-reversed form to
// the plain payload_length value, since that is what the frame header is
// defined to carry; bytes 1 and 2 are left exactly as decoded.
func (d *Decoder) decodeHeaderBytes() {
	h0, h1 := d.payload[0], d.payload[1]

	d.payloadLength = int(numerics.NibbleReverse(h0))
	d.payload[0] = byte(d.payloadLength)

	rate, ok := codingRateFromNibble[h1&0x0F]
	if !ok {
		rate = 4
	}
	d.codingRate = rate

	bitsPerSymbol := 8*d.payloadLength + 16
	blockSize := d.codingRate + 4
	numerator := bitsPerSymbol * blockSize
	denominator := 4 * int(d.cfg.SF)
	symbolsNeeded := (numerator + denominator - 1) / denominator

	if rem := symbolsNeeded % blockSize; rem != 0 {
		symbolsNeeded += blockSize - rem
	}
	d.payloadSymbolsRemaining = symbolsNeeded
}

// stepDecodePayload demodulates at full resolution, guards against
// noise past the end of the frame, and on each completed block decrements
// the payload symbol counter; when it reaches zero the payload is decoded
// and the frame is published.
func (d *Decoder) stepDecodePayload(samples []complex64) int {
	sps := d.cfg.SamplesPerSymbol
	window := samples
	if len(window) > sps {
		window = window[:sps]
	}

	if len(window) > 0 && cmplx.Abs(complex(float64(real(window[0])), float64(imag(window[0])))) < d.cfg.EnergyThreshold {
		d.payloadSymbolsRemaining = 0
	}

	method := demodMethod(d.cfg.DemodMethod)
	d.publishDebugResample(window, method)
	word := d.demod.Demodulate(window, method, false, d.cfg.EdgeThreshold)
	d.wordBuffer = append(d.wordBuffer, word)

	blockSize := 4 + d.codingRate
	if len(d.wordBuffer) == blockSize {
		d.accumulatePayloadBlock()

		if d.payloadSymbolsRemaining > 0 {
			d.payloadSymbolsRemaining -= blockSize
		}
	}

	if d.payloadSymbolsRemaining <= 0 {
		d.emitFrame()
		d.resetToDetect()
	}

	return sps
}

// emitFrame decodes the accumulated payload stream and publishes the
// 3-byte header plus payloadLength payload bytes on the frames port.
func (d *Decoder) emitFrame() {
	payloadBytes := d.decodePayload()

	frame := make([]byte, 0, 3+d.payloadLength)
	frame = append(frame, d.payload[:3]...)
	frame = append(frame, payloadBytes...)

	if d.frames != nil {
		d.frames.Write(frame)
	}
}

// publishDebugResample mirrors the original decoder's debug-only backward-FFT
// capture: when a debug publisher is configured and the frequency-domain
// method is in use, it publishes the decimated, time-domain resample of the
// folded spectrum on the "debug" port. It is a no-op for the time-domain
// method (which never builds a spectrum to resample) and when no debug
// publisher was supplied, so production callers pay nothing for it.
func (d *Decoder) publishDebugResample(window []complex64, method demod.Method) {
	if d.debug == nil || method != demod.FreqDomain {
		return
	}
	resampled := d.demod.FoldedSpectrumResample(window)
	d.debug.Write(emit.EncodeComplex64(resampled))
}

func demodMethod(m int) demod.Method {
	if m == config.DemodFreqDomain {
		return demod.FreqDomain
	}
	return demod.TimeDomain
}
