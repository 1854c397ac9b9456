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
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Each channel descriptor is a fixed 40-byte record. Fields live at fixed
// sub-offsets inside the record; multi-byte fields are big-endian.
const (
	channelRecordSize = 40

	recName         = 0  // 6 bytes, ASCII, NUL padded
	recUnit         = 6  // 4 bytes, ASCII, NUL padded
	recWidthCode    = 11 // u8, bytes per sample minus one
	recScanFactor   = 12 // u8
	recStreamFactor = 14 // u8
	recScaleMul     = 16 // u16
	recScaleOffset  = 18 // u16
	recScaleDiv     = 20 // u16
	recDataOffset   = 24 // u32, relative to the end of the header region
	recDataLength   = 28 // u32, demultiplexed layout only
)

// ErrNoActiveChannels is returned when no channel survives active-channel
// selection. Nothing can be decoded from such a file.
var ErrNoActiveChannels = errors.New("varioport: no decodable channels")

// ChannelDescriptor describes one channel from the descriptor table.
type ChannelDescriptor struct {
	Index           int    // Position in the channel table
	Name            string // Channel label (e.g. EMG1, EDA, MARKER)
	Unit            string // Physical unit (e.g. mV)
	SampleByteWidth int    // Bytes per raw sample; 1 and 2 are supported
	ScanFactor      int    // Scan rate divider, at least 1
	StreamFactor    int    // Stream rate divider, at least 1
	ScaleMultiplier uint16 // Raw scaling multiplier, 0 means unusable
	ScaleOffset     uint16 // Raw zero point
	ScaleDivisor    uint16 // Raw scaling divisor, 0 means unusable
	DataByteOffset  int64  // Absolute byte offset of the channel's data
	DataByteLength  int64  // Channel data length in bytes, 0 when inactive
}

// EffectiveSampleRate returns the channel's declared sampling rate, derived
// from the base scan rate and the channel's two rate dividers.
func (c ChannelDescriptor) EffectiveSampleRate(baseRate float64) float64 {
	return baseRate / float64(c.ScanFactor*c.StreamFactor)
}

// IsMarker reports whether this is an event marker channel. Marker channels
// are decoded even when their declared data length is zero: the recorder
// interleaves them with the signal channels without giving them a length of
// their own.
func (c ChannelDescriptor) IsMarker() bool {
	return strings.Contains(strings.ToLower(c.Name), "marker")
}

func parseChannelTable(r io.ReadSeeker, hdr FileHeader) ([]ChannelDescriptor, error) {
	if _, err := r.Seek(int64(hdr.ChannelTableOffset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("error seeking to channel table: %w", err)
	}

	channels := make([]ChannelDescriptor, hdr.ChannelCount)
	rec := make([]byte, channelRecordSize)
	for i := range channels {
		if _, err := io.ReadFull(r, rec); err != nil {
			return nil, fmt.Errorf("error reading channel record %d: %w", i, err)
		}
		channels[i] = parseChannelRecord(i, rec, hdr)
	}

	return channels, nil
}

func parseChannelRecord(i int, rec []byte, hdr FileHeader) ChannelDescriptor {
	c := ChannelDescriptor{
		Index:           i,
		Name:            trimRaw(rec[recName:recUnit]),
		Unit:            trimRaw(rec[recUnit : recUnit+4]),
		SampleByteWidth: int(rec[recWidthCode]) + 1,
		ScanFactor:      int(rec[recScanFactor]),
		StreamFactor:    int(rec[recStreamFactor]),
		ScaleMultiplier: binary.BigEndian.Uint16(rec[recScaleMul:]),
		ScaleOffset:     binary.BigEndian.Uint16(rec[recScaleOffset:]),
		ScaleDivisor:    binary.BigEndian.Uint16(rec[recScaleDiv:]),
		DataByteOffset:  int64(binary.BigEndian.Uint32(rec[recDataOffset:])) + int64(hdr.HeaderLength),
		DataByteLength:  int64(binary.BigEndian.Uint32(rec[recDataLength:])),
	}

	if c.ScanFactor == 0 {
		c.ScanFactor = 1
	}
	if c.StreamFactor == 0 {
		c.StreamFactor = 1
	}

	return c
}

// trimRaw strips the NUL padding and surrounding whitespace from a raw
// fixed-width string field.
func trimRaw(b []byte) string {
	return strings.TrimSpace(string(bytes.TrimRight(b, "\x00")))
}

// selectActive filters the channel table down to the channels that will be
// decoded. Channels with unsupported sample widths are skipped with a
// diagnostic rather than aborting the file.
func selectActive(channels []ChannelDescriptor, diag DiagFunc) ([]ChannelDescriptor, error) {
	var active []ChannelDescriptor
	for _, c := range channels {
		if c.DataByteLength == 0 && !c.IsMarker() {
			continue
		}
		if c.SampleByteWidth != 1 && c.SampleByteWidth != 2 {
			diag.warnf("channel %q: unsupported sample width %d bytes, skipping", c.Name, c.SampleByteWidth)
			continue
		}
		active = append(active, c)
	}

	if len(active) == 0 {
		return nil, ErrNoActiveChannels
	}

	return active, nil
}

// streamRate returns the sampling rate of the shared sample stream: the
// highest declared channel rate. A low-rate marker channel is commonly
// interleaved one-to-one with a high-rate signal channel, so the highest
// declared rate is the true interleave cadence.
func streamRate(active []ChannelDescriptor, baseRate float64) float64 {
	var max float64
	for _, c := range active {
		if r := c.EffectiveSampleRate(baseRate); r > max {
			max = r
		}
	}
	return max
}
