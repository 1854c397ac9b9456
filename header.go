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
	"errors"
	"fmt"
	"io"
)

// Byte offsets of the fixed header fields, relative to the start of the
// file. All multi-byte fields are big-endian.
const (
	offHeaderLength       = 2  // u16
	offChannelTableOffset = 4  // u16
	offHeaderType         = 6  // u8
	offChannelCount       = 7  // u8
	offBaseScanRate       = 20 // u16

	// minHeaderBytes is the number of bytes needed to reach every fixed
	// header field.
	minHeaderBytes = 22
)

// LayoutDemultiplexed identifies files that store each channel as one
// contiguous block. Every other header type stores a single interleaved
// sample stream.
const LayoutDemultiplexed = 6

// ErrHeaderTooShort is returned when the file is too short to contain the
// fixed header region.
var ErrHeaderTooShort = errors.New("varioport: file too short for header")

// FileHeader holds the fixed-offset scalar fields at the start of a
// Varioport file.
type FileHeader struct {
	HeaderLength       uint16 // Length of the header region in bytes
	ChannelTableOffset uint16 // Byte offset of the channel descriptor table
	HeaderType         uint8  // On-disk sample layout discriminator
	ChannelCount       uint8  // Number of records in the channel table
	BaseScanRate       uint16 // Declared base scan rate in Hz
}

// Multiplexed reports whether the sample data is stored as one interleaved
// stream shared by all active channels.
func (h FileHeader) Multiplexed() bool { return h.HeaderType != LayoutDemultiplexed }

func parseHeader(r io.ReadSeeker) (FileHeader, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return FileHeader{}, fmt.Errorf("error seeking to header: %w", err)
	}

	b := make([]byte, minHeaderBytes)
	if _, err := io.ReadFull(r, b); err != nil {
		return FileHeader{}, fmt.Errorf("%w: %v", ErrHeaderTooShort, err)
	}

	return FileHeader{
		HeaderLength:       binary.BigEndian.Uint16(b[offHeaderLength:]),
		ChannelTableOffset: binary.BigEndian.Uint16(b[offChannelTableOffset:]),
		HeaderType:         b[offHeaderType],
		ChannelCount:       b[offChannelCount],
		BaseScanRate:       binary.BigEndian.Uint16(b[offBaseScanRate:]),
	}, nil
}
