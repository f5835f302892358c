/*
NAME
  source.go

DESCRIPTION
  source.go defines Source, the small capture-device-shaped interface the
  decoder expects of its I/Q sample front-end, plus a slice-backed
  implementation for tests.

AUTHORS
  Ella Pietraroia <ella@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package source defines the sample-sink-with-consume-count-feedback
// contract the decoder's host streaming-block framework is expected to
// satisfy, and a simple in-memory implementation for tests.
package source

import "errors"

// ErrExhausted is returned by Read once a Source has no further samples
// to offer.
var ErrExhausted = errors.New("source: exhausted")

// Source is a configurable front-end from which complex baseband I/Q
// samples can be obtained. It mirrors the shape of a capture device: a
// name, start/stop lifecycle, and a read operation, but trades
// io.Reader's byte semantics for one that hands back whole samples so
// that consume-count feedback stays in units of symbols rather than
// bytes.
type Source interface {
	// Name returns a human-readable identifier for the source.
	Name() string

	// Start begins sample acquisition.
	Start() error

	// Stop ends sample acquisition. Once stopped, Read no longer succeeds.
	Stop() error

	// IsRunning reports whether the source is currently started.
	IsRunning() bool

	// Read copies up to len(buf) samples into buf and returns the number
	// copied. It returns ErrExhausted once no more samples remain.
	Read(buf []complex64) (int, error)
}

// SliceSource is a Source backed by a fixed, in-memory slice of complex
// samples, for use in tests in place of a real SDR front-end.
type SliceSource struct {
	samples []complex64
	pos     int
	running bool
}

// NewSliceSource returns a SliceSource that serves samples in order.
func NewSliceSource(samples []complex64) *SliceSource {
	return &SliceSource{samples: samples}
}

func (s *SliceSource) Name() string { return "slice-source" }

func (s *SliceSource) Start() error {
	s.running = true
	return nil
}

func (s *SliceSource) Stop() error {
	s.running = false
	return nil
}

func (s *SliceSource) IsRunning() bool { return s.running }

// Read copies the next available samples into buf. It does not check
// whether the source is running: it serves samples before Start and after
// Stop alike.
func (s *SliceSource) Read(buf []complex64) (int, error) {
	if s.pos >= len(s.samples) {
		return 0, ErrExhausted
	}
	n := copy(buf, s.samples[s.pos:])
	s.pos += n
	return n, nil
}
