// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2025 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package varioport_test

import "encoding/binary"

// testChannel describes one 40-byte channel record for synthesized files.
type testChannel struct {
	name    string
	unit    string
	width   int
	scan    byte
	stream  byte
	mul     uint16
	off     uint16
	div     uint16
	dataOff uint32 // relative to the header region
	dataLen uint32
}

// buildFile synthesizes a Varioport file: fixed header fields, the channel
// table at offset 32, and the payload immediately after the table. The
// header length is set so the payload starts at the end of the table, which
// makes relative channel data offsets payload offsets.
func buildFile(headerType byte, baseRate uint16, channels []testChannel, payload []byte) []byte {
	headerLen := 32 + 40*len(channels)

	buf := make([]byte, headerLen)
	binary.BigEndian.PutUint16(buf[2:], uint16(headerLen))
	binary.BigEndian.PutUint16(buf[4:], 32)
	buf[6] = headerType
	buf[7] = byte(len(channels))
	binary.BigEndian.PutUint16(buf[20:], baseRate)

	for i, c := range channels {
		rec := buf[32+40*i : 32+40*(i+1)]
		copy(rec[0:6], c.name)
		copy(rec[6:10], c.unit)
		rec[11] = byte(c.width - 1)
		rec[12] = c.scan
		rec[14] = c.stream
		binary.BigEndian.PutUint16(rec[16:], c.mul)
		binary.BigEndian.PutUint16(rec[18:], c.off)
		binary.BigEndian.PutUint16(rec[20:], c.div)
		binary.BigEndian.PutUint32(rec[24:], c.dataOff)
		binary.BigEndian.PutUint32(rec[28:], c.dataLen)
	}

	return append(buf, payload...)
}

// identity is a scaling triple that leaves raw values untouched.
func identity(c testChannel) testChannel {
	c.mul = 1
	c.div = 1
	c.off = 0
	return c
}
