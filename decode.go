// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2025 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package varioport

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"
)

// defaultChunkDuration bounds how much of a multiplexed stream is decoded
// at a time, keeping memory proportional to one chunk rather than to the
// file size.
const defaultChunkDuration = time.Minute

// Options configures decoding.
type Options struct {
	// BaseRateOverride replaces the file's declared base scan rate when
	// nonzero. Some recorder batches are known to write a wrong rate field;
	// an applied override is documented in the sidecar note.
	BaseRateOverride float64

	// ChunkDuration bounds how much multiplexed data is decoded at a time.
	// Defaults to one minute.
	ChunkDuration time.Duration

	// Diagnostics receives non-fatal decode events. May be nil.
	Diagnostics DiagFunc
}

// File is a parsed Varioport file positioned for decoding.
type File struct {
	Header   FileHeader
	Channels []ChannelDescriptor // full descriptor table
	Active   []ChannelDescriptor // channels selected for decoding

	r    io.ReadSeeker
	opts Options
}

// Open parses the header and channel table from r and selects the
// decodable channels. The reader must remain valid for the lifetime of the
// returned File.
func Open(r io.ReadSeeker, opts *Options) (*File, error) {
	var o Options
	if opts != nil {
		o = *opts
	}
	if o.ChunkDuration <= 0 {
		o.ChunkDuration = defaultChunkDuration
	}

	hdr, err := parseHeader(r)
	if err != nil {
		return nil, err
	}

	channels, err := parseChannelTable(r, hdr)
	if err != nil {
		return nil, fmt.Errorf("error reading channel table: %w", err)
	}

	active, err := selectActive(channels, o.Diagnostics)
	if err != nil {
		return nil, err
	}

	return &File{
		Header:   hdr,
		Channels: channels,
		Active:   active,
		r:        r,
		opts:     o,
	}, nil
}

// BaseRate returns the base scan rate in effect: the caller's override when
// one was supplied, otherwise the rate declared in the file header.
func (f *File) BaseRate() float64 {
	if f.opts.BaseRateOverride > 0 {
		return f.opts.BaseRateOverride
	}
	return float64(f.Header.BaseScanRate)
}

// StreamRate returns the sampling rate of the shared sample stream, the
// highest declared rate among the active channels.
func (f *File) StreamRate() float64 {
	return streamRate(f.Active, f.BaseRate())
}

// DecodedChannel holds one channel's fully decoded physical values.
type DecodedChannel struct {
	Descriptor ChannelDescriptor
	Scaling    ScalingProfile
	Samples    []float64
	Padded     int // trailing synthetic zero samples appended for length alignment
}

// DecodeDemultiplexed reads every active channel's contiguous data block
// and applies its scaling profile. Channels may declare different lengths;
// shorter channels are right-padded with zero samples so all channels share
// the longest channel's length, with the pad count reported per channel.
func (f *File) DecodeDemultiplexed() ([]DecodedChannel, error) {
	decoded := make([]DecodedChannel, 0, len(f.Active))

	var longest int
	for _, c := range f.Active {
		scaling := ResolveScaling(c)

		// Trailing bytes that don't fill a whole sample are discarded.
		count := int(c.DataByteLength) / c.SampleByteWidth

		samples := make([]float64, 0, count)
		if count > 0 {
			if _, err := f.r.Seek(c.DataByteOffset, io.SeekStart); err != nil {
				return nil, fmt.Errorf("error seeking to channel %q data: %w", c.Name, err)
			}

			raw := make([]byte, count*c.SampleByteWidth)
			if _, err := io.ReadFull(f.r, raw); err != nil {
				return nil, fmt.Errorf("error reading channel %q data: %w", c.Name, err)
			}

			for i := 0; i < count; i++ {
				samples = append(samples, scaling.Apply(rawSample(raw, i, c.SampleByteWidth)))
			}
		}

		if len(samples) > longest {
			longest = len(samples)
		}

		decoded = append(decoded, DecodedChannel{Descriptor: c, Scaling: scaling, Samples: samples})
	}

	for i := range decoded {
		if pad := longest - len(decoded[i].Samples); pad > 0 {
			decoded[i].Samples = append(decoded[i].Samples, make([]float64, pad)...)
			decoded[i].Padded = pad
			f.opts.Diagnostics.infof("channel %q: appended %d synthetic zero samples for length alignment",
				decoded[i].Descriptor.Name, pad)
		}
	}

	return decoded, nil
}

// rawSample extracts the i-th big-endian unsigned sample of the given byte
// width from b.
func rawSample(b []byte, i, width int) float64 {
	if width == 2 {
		return float64(binary.BigEndian.Uint16(b[i*2:]))
	}
	return float64(b[i])
}

// ChunkReader streams a multiplexed sample stream in bounded time-sized
// chunks.
type ChunkReader struct {
	file    *File
	scaling []ScalingProfile
	// blockSize is the byte length of one interleaved sample group, one
	// value per active channel in channel-table order.
	blockSize int
	buf       []byte
	done      bool
}

// Chunks positions the reader at the start of the interleaved sample data
// and prepares chunked decoding.
func (f *File) Chunks() (*ChunkReader, error) {
	if !f.Header.Multiplexed() {
		return nil, fmt.Errorf("varioport: header type %d is not multiplexed", f.Header.HeaderType)
	}

	var blockSize int
	scaling := make([]ScalingProfile, len(f.Active))
	for i, c := range f.Active {
		blockSize += c.SampleByteWidth
		scaling[i] = ResolveScaling(c)
	}

	samplesPerChunk := int(math.Round(f.opts.ChunkDuration.Seconds() * f.StreamRate()))
	if samplesPerChunk < 1 {
		samplesPerChunk = 1
	}

	if _, err := f.r.Seek(int64(f.Header.HeaderLength), io.SeekStart); err != nil {
		return nil, fmt.Errorf("error seeking to sample data: %w", err)
	}

	return &ChunkReader{
		file:      f,
		scaling:   scaling,
		blockSize: blockSize,
		buf:       make([]byte, samplesPerChunk*blockSize),
	}, nil
}

// Next decodes the next chunk, returning one physical-value slice per
// active channel in channel-table order, all of equal length. A trailing
// partial sample group is discarded. Next returns io.EOF once the stream is
// exhausted.
func (cr *ChunkReader) Next() ([][]float64, error) {
	if cr.done {
		return nil, io.EOF
	}

	n, err := io.ReadFull(cr.file.r, cr.buf)
	switch err {
	case nil:
	case io.EOF, io.ErrUnexpectedEOF:
		cr.done = true
	default:
		return nil, fmt.Errorf("error reading sample data: %w", err)
	}

	numBlocks := n / cr.blockSize
	if numBlocks == 0 {
		cr.done = true
		return nil, io.EOF
	}

	chunk := make([][]float64, len(cr.file.Active))
	for i := range chunk {
		chunk[i] = make([]float64, numBlocks)
	}

	for block := 0; block < numBlocks; block++ {
		off := block * cr.blockSize
		for i, c := range cr.file.Active {
			var raw float64
			if c.SampleByteWidth == 2 {
				raw = float64(binary.BigEndian.Uint16(cr.buf[off:]))
				off += 2
			} else {
				raw = float64(cr.buf[off])
				off++
			}
			chunk[i][block] = cr.scaling[i].Apply(raw)
		}
	}

	return chunk, nil
}
