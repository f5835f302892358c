/*
NAME
  emit.go

DESCRIPTION
  emit.go provides the decoder's two outgoing message ports, "frames" and
  "debug", as a small Publisher interface with a pool-buffer-backed
  implementation for production use and an in-memory implementation for
  tests.

AUTHORS
  Ella Pietraroia <ella@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package emit publishes decoded frames and optional debug sample blobs
// on named, asynchronous message ports, mirroring the "frames"/"debug"
// ports of the decoder this module implements.
package emit

import (
	"encoding/binary"
	"io"
	"math"
	"time"

	"github.com/ausocean/utils/logging"
	"github.com/ausocean/utils/pool"
)

// Publisher is the interface the decoder publishes frames and debug blobs
// through. It embeds io.Writer, echoing the filter package's
// io.WriteCloser-shaped stage interface, so a Publisher can sit directly
// at the end of a write-based pipeline stage.
type Publisher interface {
	io.Writer
}

// PoolPublisher publishes each blob through a pool.Buffer before handing
// it to dst, reusing the pool's backing storage across publishes instead
// of allocating fresh buffers per frame. Each Write is a single
// write-flush-read round trip: production use is synchronous (one call
// per decoded frame), so readTimeout only needs to absorb scheduling
// jitter between the Flush and the following Next, not genuine producer/
// consumer contention.
type PoolPublisher struct {
	dst         io.Writer
	buf         *pool.Buffer
	readTimeout time.Duration
	log         logging.Logger
}

// NewPoolPublisher returns a PoolPublisher that forwards published blobs
// to dst. capacity and elementSize size the underlying pool.Buffer;
// readTimeout bounds the Next call following each Write/Flush.
func NewPoolPublisher(dst io.Writer, capacity, elementSize int, readTimeout time.Duration, log logging.Logger) *PoolPublisher {
	return &PoolPublisher{
		dst:         dst,
		buf:         pool.NewBuffer(capacity, elementSize, readTimeout),
		readTimeout: readTimeout,
		log:         log,
	}
}

// Write publishes b, returning once it has been forwarded to dst or the
// read timeout has elapsed.
func (p *PoolPublisher) Write(b []byte) (int, error) {
	n, err := p.buf.Write(b)
	if err != nil {
		p.log.Warning("emit: pool buffer write error", "error", err.Error(), "n", n)
		return n, err
	}
	p.buf.Flush()

	chunk, err := p.buf.Next(p.readTimeout)
	if err != nil {
		p.log.Warning("emit: pool buffer read timeout", "error", err.Error())
		return n, err
	}
	defer chunk.Close()

	return p.dst.Write(chunk.Bytes())
}

// EncodeComplex64 serializes samples as consecutive little-endian
// real/imaginary float32 pairs, the wire format used for blobs published on
// the "debug" port.
func EncodeComplex64(samples []complex64) []byte {
	b := make([]byte, 8*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(b[8*i:], math.Float32bits(real(s)))
		binary.LittleEndian.PutUint32(b[8*i+4:], math.Float32bits(imag(s)))
	}
	return b
}

// Recorder is an in-memory Publisher that retains every published blob,
// for use in tests in place of a real sink.
type Recorder struct {
	Published [][]byte
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder { return &Recorder{} }

// Write appends a copy of p to Published.
func (r *Recorder) Write(p []byte) (int, error) {
	cp := make([]byte, len(p))
	copy(cp, p)
	r.Published = append(r.Published, cp)
	return len(p), nil
}
