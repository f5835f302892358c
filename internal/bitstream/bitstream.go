/*
NAME
  bitstream.go

DESCRIPTION
  bitstream.go implements the symbol-to-byte decoding chain: Gray
  decoding, diagonal deinterleaving, column-shuffle reversal, whitening
  XOR with per-byte bit-reversal, and Hamming forward error
  correction.

AUTHORS
  Ella Pietraroia <ella@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package bitstream turns demodulated LoRa symbol codewords into decoded
// frame bytes: Gray decode, diagonal deinterleave, deshuffle, dewhiten,
// and Hamming FEC, applied in that order.
package bitstream

import "github.com/ausocean/lora/internal/numerics"

// shufflePattern is the fixed bit permutation applied by Deshuffle: output
// bit j comes from input bit shufflePattern[j].
var shufflePattern = [8]uint{7, 6, 3, 4, 2, 1, 0, 5}

// hammingDataIndices are the bit positions extracted directly from each
// input byte when the coding rate provides no true correction (cr 1 or 2).
var hammingDataIndices = [4]uint{1, 2, 3, 5}

// GrayDecode converts a raw FFT/edge bin index into the LoRa symbol
// codeword by xor-ing the bin with its right shift by one. Despite the
// name (inherited from the reference decoder this is modeled on, which
// notes the same irony), this is the textbook binary-to-Gray-code
// transform; GrayEncode below is its true inverse.
func GrayDecode(bin uint32) uint32 {
	return bin ^ (bin >> 1)
}

// GrayEncode recovers the original bin index from a Gray-decoded
// codeword; it is the inverse of GrayDecode.
func GrayEncode(word uint32) uint32 {
	b := word
	for shift := uint(1); shift < 32; shift <<= 1 {
		b ^= b >> shift
	}
	return b
}

// Deinterleave reverses the diagonal interleaving applied to a completed
// block of words (codewords), each holding ppm bits. len(words) must be
// 4+coding_rate; the result is ppm bytes, each carrying len(words) bits.
//
// Each word is rotated left within its ppm-bit field by its position in
// the block, then bit x of the rotated word (x counting down from ppm-1
// to 0) is written into bit i of the x-th output byte.
func Deinterleave(words []uint32, ppm uint) []byte {
	out := make([]byte, ppm)
	offsetStart := ppm - 1

	for i, w := range words {
		rotated := numerics.RotateLeft(w, uint(i), ppm)

		x := offsetStart
		for j := uint32(1) << offsetStart; j != 0; j >>= 1 {
			if rotated&j != 0 {
				out[x] |= 1 << uint(i)
			}
			if x == 0 {
				break
			}
			x--
		}
	}

	return out
}

// Interleave is the inverse of Deinterleave: given ppm output bytes and a
// word count numWords (at most 8, the bit width of a byte), it reconstructs
// the numWords codewords that Deinterleave would turn into those bytes. It
// exists to let tests synthesize a realistic word stream from a target
// decoded byte sequence; production decoding only ever consumes codewords
// demodulated from real symbol windows, never this function.
func Interleave(out []byte, ppm uint, numWords int) []uint32 {
	words := make([]uint32, numWords)
	offsetStart := ppm - 1

	for i := 0; i < numWords; i++ {
		var rotated uint32
		x := offsetStart
		for j := uint32(1) << offsetStart; j != 0; j >>= 1 {
			if out[x]&(1<<uint(i)) != 0 {
				rotated |= j
			}
			if x == 0 {
				break
			}
			x--
		}
		words[i] = numerics.RotateLeft(rotated, (ppm-uint(i)%ppm)%ppm, ppm)
	}

	return words
}

// Deshuffle permutes the bits of each byte in data according to the fixed
// shuffle pattern (output bit j = input bit shufflePattern[j]) and returns
// the permuted bytes.
func Deshuffle(data []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		var result byte
		for j, p := range shufflePattern {
			if b&(1<<p) != 0 {
				result |= 1 << uint(j)
			}
		}
		out[i] = result
	}
	return out
}

// Shuffle is the inverse bit permutation of Deshuffle, so that
// Deshuffle(Shuffle(data)) reproduces data byte-for-byte. Like HammingEncode
// and Interleave, it exists to let tests synthesize a realistic
// pre-deshuffle byte stream from a target deshuffled value; production
// decoding only ever consumes already-shuffled bytes off the wire.
func Shuffle(data []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		var result byte
		for j, p := range shufflePattern {
			if b&(1<<uint(j)) != 0 {
				result |= 1 << p
			}
		}
		out[i] = result
	}
	return out
}

// Dewhiten XORs each byte of data with the corresponding byte of prng,
// then bit-reverses the result within the byte. The final bit-reversal
// corrects a bit-order mismatch introduced upstream by the interleaver
// and is load-bearing, not optional: omitting it yields inverted nibble
// order in every decoded byte.
func Dewhiten(data []byte, prng []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = numerics.ReverseBits(b ^ prng[i])
	}
	return out
}

// HammingDecode performs forward error correction on dewhitened data
// according to the current coding rate cr, writing exactly len(out) bytes.
//
// For cr in {3, 4} (Hamming(7,4) / Hamming(8,4)), each input byte encodes
// one data nibble with parity at the remaining bit positions; a single
// bit error per byte is corrected via syndrome decoding before the data
// nibble is extracted. Two input bytes pack into one output byte, data
// nibble in the upper half first.
//
// For cr in {1, 2}, there is no true correction: data bits are extracted
// as-is from fixed positions [1,2,3,5] of each input byte and packed two
// nibbles per output byte. Parity errors in this mode are not reported.
func HammingDecode(data []byte, cr int, out []byte) {
	switch cr {
	case 3, 4:
		hammingDecodeSoft(data, cr, out)
	case 1, 2:
		fecExtractDataOnly(data, out)
	}
}

// hammingDecodeSoft corrects and decodes Hamming(7,4)/Hamming(8,4)-encoded
// nibbles (cr 3 and 4 respectively), then packs two nibbles per output
// byte, high nibble first.
func hammingDecodeSoft(data []byte, cr int, out []byte) {
	for i := 0; i < len(out); i++ {
		var b byte
		if 2*i < len(data) {
			b = dataNibble(hammingCorrect(data[2*i], cr)) << 4
		}
		if 2*i+1 < len(data) {
			b |= dataNibble(hammingCorrect(data[2*i+1], cr))
		}
		out[i] = b
	}
}

// hammingColumn is the parity-check-matrix column assigned to bit
// position pos (0-6): simply pos+1, so the seven columns enumerate every
// nonzero 3-bit pattern exactly once. Any such bijection yields a valid
// single-error-correcting Hamming(7,4) code; this is the simplest one.
func hammingColumn(pos uint) uint { return pos + 1 }

// HammingEncode builds a Hamming(7,4) (cr==3) or Hamming(8,4) (cr==4)
// codeword from a 4-bit data nibble, placing data bits at byte positions
// [1,2,3,5] and parity at the remaining positions, consistent with
// hammingColumn. It exists to keep the code round-trippable in tests;
// production decoding only ever consumes codewords produced by a remote
// transmitter, never this function.
func HammingEncode(nibble byte, cr int) byte {
	d0 := (nibble >> 0) & 1
	d1 := (nibble >> 1) & 1
	d2 := (nibble >> 2) & 1
	d3 := (nibble >> 3) & 1

	p0 := d1 ^ d2 ^ d3
	p1 := d0 ^ d1 ^ d2
	p2 := d0 ^ d1 ^ d3

	b := p0<<0 | d0<<1 | d1<<2 | d2<<3 | p1<<4 | d3<<5 | p2<<6

	if cr == 4 {
		var parity byte
		for pos := uint(0); pos < 7; pos++ {
			parity ^= (b >> pos) & 1
		}
		b |= parity << 7
	}

	return b
}

// hammingCorrect corrects a single bit error in a Hamming(7,4) (cr==3) or
// Hamming(8,4) (cr==4) codeword byte, returning the corrected byte.
// Hamming(8,4)'s extra overall-parity bit (position 7) distinguishes a
// single correctable error from an uncorrectable double error; in the
// double-error case the byte is returned unmodified, same as the
// unreported parity errors of the low-rate path.
func hammingCorrect(b byte, cr int) byte {
	var syndrome uint
	for pos := uint(0); pos < 7; pos++ {
		if b&(1<<pos) != 0 {
			syndrome ^= hammingColumn(pos)
		}
	}

	if cr != 4 {
		if syndrome != 0 {
			b ^= 1 << (syndrome - 1)
		}
		return b
	}

	var overall byte
	for pos := uint(0); pos < 8; pos++ {
		overall ^= (b >> pos) & 1
	}

	switch {
	case syndrome == 0 && overall == 0:
		// No error.
	case syndrome != 0 && overall == 1:
		b ^= 1 << (syndrome - 1)
	case syndrome == 0 && overall == 1:
		b ^= 1 << 7
	default:
		// Double bit error: uncorrectable, left as-is.
	}

	return b
}

// dataNibble extracts the 4 data bits of a Hamming(7,4)/Hamming(8,4)
// codeword from fixed positions [1,2,3,5], matching the position set the
// low-rate extraction path also uses.
func dataNibble(b byte) byte {
	var n byte
	for i, pos := range hammingDataIndices {
		if b&(1<<pos) != 0 {
			n |= 1 << uint(i)
		}
	}
	return n
}

// fecExtractDataOnly extracts 4 data bits from fixed positions [1,2,3,5]
// of each input byte and packs two nibbles per output byte, with no
// parity correction or error reporting.
func fecExtractDataOnly(data []byte, out []byte) {
	for i := 0; i < len(out); i++ {
		var b byte
		if 2*i < len(data) {
			b = dataNibble(data[2*i]) << 4
		}
		if 2*i+1 < len(data) {
			b |= dataNibble(data[2*i+1])
		}
		out[i] = b
	}
}
