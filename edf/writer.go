// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
)

// Writer writes EDF files.
type Writer struct {
	w           io.WriteSeeker
	hdr         *Header
	dataRecords int         // Number of data records written so far.
	pending     [][]float64 // Per-signal samples not yet forming a whole record.
}

// Create creates a new EDF writer that writes to the given writer.
func Create(w io.WriteSeeker, hdr Header) (*Writer, error) {
	if len(hdr.Signals) != hdr.SignalCount {
		return nil, fmt.Errorf("expected %d signal headers, got %d", hdr.SignalCount, len(hdr.Signals))
	}

	hdr.DataRecords = -1 // Unknown number of data records (at this time).

	ew := &Writer{w: w, hdr: &hdr, pending: make([][]float64, hdr.SignalCount)}

	// Write the initial header
	if err := ew.writeHeader(); err != nil {
		return nil, fmt.Errorf("error writing header: %w", err)
	}

	return ew, nil
}

// Close flushes any buffered samples and finalizes the EDF file by updating
// the header with the total number of data records actually written.
func (ew *Writer) Close() error {
	if err := ew.flushPartialRecord(); err != nil {
		return fmt.Errorf("error flushing buffered samples: %w", err)
	}

	ew.hdr.DataRecords = ew.dataRecords
	if err := ew.writeHeader(); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}

	return nil
}

// WriteSamples appends physical sample values to the file, one slice per
// signal in header order, all slices the same length. Samples are buffered
// and packed into fixed-duration data records; any final partial record is
// zero-padded when the writer is closed. Callers may deliver samples in
// chunks of any size.
func (ew *Writer) WriteSamples(samples [][]float64) error {
	if len(samples) != ew.hdr.SignalCount {
		return fmt.Errorf("expected %d signals, got %d", ew.hdr.SignalCount, len(samples))
	}

	for i := range samples {
		ew.pending[i] = append(ew.pending[i], samples[i]...)
	}

	// Emit as many whole records as the buffers allow.
	for {
		ready := true
		for i, signal := range ew.hdr.Signals {
			if len(ew.pending[i]) < signal.SamplesPerRecord {
				ready = false
				break
			}
		}
		if !ready {
			return nil
		}

		record := make([][]float64, ew.hdr.SignalCount)
		for i, signal := range ew.hdr.Signals {
			record[i] = ew.pending[i][:signal.SamplesPerRecord]
		}

		if err := ew.WriteRecord(record); err != nil {
			return err
		}

		for i, signal := range ew.hdr.Signals {
			ew.pending[i] = ew.pending[i][signal.SamplesPerRecord:]
		}
	}
}

// flushPartialRecord zero-pads and writes out any buffered samples that
// don't fill a whole data record.
func (ew *Writer) flushPartialRecord() error {
	var pending bool
	for i := range ew.pending {
		if len(ew.pending[i]) > 0 {
			pending = true
			break
		}
	}
	if !pending {
		return nil
	}

	record := make([][]float64, ew.hdr.SignalCount)
	for i, signal := range ew.hdr.Signals {
		record[i] = append(ew.pending[i], make([]float64, signal.SamplesPerRecord-len(ew.pending[i]))...)
		ew.pending[i] = nil
	}

	return ew.WriteRecord(record)
}

// WriteRecord writes a single data record to the EDF file.
func (ew *Writer) WriteRecord(signals [][]float64) error {
	if len(signals) != ew.hdr.SignalCount {
		return fmt.Errorf("expected %d signals, got %d", ew.hdr.SignalCount, len(signals))
	}

	var totalSamples int
	for _, signal := range signals {
		totalSamples += len(signal)
	}

	// As recommended by the EDF standard.
	if totalSamples*2 > 61440 {
		return fmt.Errorf("data record too large: %d bytes, max is 61440 bytes", totalSamples*2)
	}

	writer := bufio.NewWriter(ew.w)

	// Write each signal's data
	for i := 0; i < ew.hdr.SignalCount; i++ {
		signal := ew.hdr.Signals[i]
		for _, sample := range signals[i] {
			digitalValue := convertPhysicalToDigital(sample, signal.PhysicalMin, signal.PhysicalMax, signal.DigitalMin, signal.DigitalMax)
			if err := binary.Write(writer, binary.LittleEndian, int16(digitalValue)); err != nil {
				return err
			}
		}
	}

	// Ensure all data is flushed to the underlying writer
	if err := writer.Flush(); err != nil {
		return err
	}

	ew.dataRecords++
	return nil
}

// writeHeader writes the EDF header at the start of the file.
func (ew *Writer) writeHeader() error {
	// Rewind to the beginning of the file.
	if _, err := ew.w.Seek(0, io.SeekStart); err != nil {
		return err
	}

	ew.hdr.HeaderBytes = 256 + ew.hdr.SignalCount*256

	fw := &fieldWriter{w: bufio.NewWriter(ew.w)}

	fw.putString(8, string(ew.hdr.Version))
	fw.putString(80, ew.hdr.PatientID)
	fw.putString(80, ew.hdr.RecordingID)
	fw.putString(8, ew.hdr.StartTime.Format("02.01.06"))
	fw.putString(8, ew.hdr.StartTime.Format("15.04.05"))
	fw.putInt(8, ew.hdr.HeaderBytes)
	fw.putString(44, "") // reserved
	fw.putInt(8, ew.hdr.DataRecords)
	fw.putInt(8, int(math.Ceil(ew.hdr.DataRecordDuration.Seconds())))
	fw.putInt(4, ew.hdr.SignalCount)

	for _, signal := range ew.hdr.Signals {
		fw.putString(16, signal.Label)
	}
	for _, signal := range ew.hdr.Signals {
		fw.putString(80, signal.TransducerType)
	}
	for _, signal := range ew.hdr.Signals {
		fw.putString(8, signal.PhysicalDimension)
	}
	for _, signal := range ew.hdr.Signals {
		fw.putString(8, formatPhysicalValue(signal.PhysicalMin))
	}
	for _, signal := range ew.hdr.Signals {
		fw.putString(8, formatPhysicalValue(signal.PhysicalMax))
	}
	for _, signal := range ew.hdr.Signals {
		fw.putInt(8, signal.DigitalMin)
	}
	for _, signal := range ew.hdr.Signals {
		fw.putInt(8, signal.DigitalMax)
	}
	for _, signal := range ew.hdr.Signals {
		fw.putString(80, signal.Prefiltering)
	}
	for _, signal := range ew.hdr.Signals {
		fw.putInt(8, signal.SamplesPerRecord)
	}
	for range ew.hdr.Signals {
		fw.putString(32, "") // reserved
	}

	if fw.err != nil {
		return fw.err
	}

	// Ensure all data is flushed to the underlying writer
	return fw.w.Flush()
}

// fieldWriter emits the space-padded fixed-width ASCII fields that make up
// an EDF header, capturing the first error.
type fieldWriter struct {
	w   *bufio.Writer
	err error
}

func (fw *fieldWriter) putString(width int, s string) {
	if fw.err == nil {
		_, fw.err = fmt.Fprintf(fw.w, "%-*s", width, s)
	}
}

func (fw *fieldWriter) putInt(width int, v int) {
	fw.putString(width, strconv.Itoa(v))
}

// convertPhysicalToDigital converts a physical value to a digital value using the calibration factors.
func convertPhysicalToDigital(physical float64, pmin, pmax float64, dmin, dmax int) int16 {
	if pmax == pmin {
		return 0 // Avoid division by zero
	}
	digital := ((physical - pmin) * (float64(dmax - dmin)) / (pmax - pmin)) + float64(dmin)
	return int16(digital)
}

func formatPhysicalValue(val float64) string {
	// Try with 2 decimal places
	s := fmt.Sprintf("%.2f", val)
	if len(s) > 8 {
		// Fall back to no decimal
		s = fmt.Sprintf("%.0f", val)
	}
	return s
}
