// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OpenPSG/varioport/edf"
	"github.com/stretchr/testify/require"
)

func TestWriter(t *testing.T) {
	f, err := os.OpenFile(filepath.Join(t.TempDir(), "test.edf"), os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, f.Close())
	})

	hdr := edf.Header{
		Version:            edf.Version0,
		PatientID:          "Patient X",
		RecordingID:        "Recording 1",
		StartTime:          time.Now(),
		DataRecordDuration: 60 * time.Second,
		SignalCount:        1,
		Signals: []edf.Signal{
			{
				Label:             "EEG Fpz-Cz",
				TransducerType:    "AgAgCl electrode",
				PhysicalDimension: "uV",
				PhysicalMin:       -500,
				PhysicalMax:       500,
				DigitalMin:        -2048,
				DigitalMax:        2047,
				SamplesPerRecord:  256,
			},
		},
	}

	ew, err := edf.Create(f, hdr)
	require.NoError(t, err)

	// Write some data records
	record := make([]float64, 256)
	for i := range record {
		record[i] = float64(i) // physical value
	}

	// Write the first data record
	err = ew.WriteRecord([][]float64{record})
	require.NoError(t, err)

	for i := range record {
		record[i] = float64(i + 256)
	}

	// Write the second data record
	err = ew.WriteRecord([][]float64{record})
	require.NoError(t, err)

	// Close the writer (this writes the header)
	require.NoError(t, ew.Close())

	// Rewind the file
	_, err = f.Seek(0, io.SeekStart)
	require.NoError(t, err)

	// Read the file
	er, err := edf.Open(f)
	require.NoError(t, err)

	// Read the first data record
	sr, err := er.Signal(0)
	require.NoError(t, err)

	// Read the first 511 samples
	samples := make([]float64, 512)
	n, err := sr.Read(samples)
	require.NoError(t, err)
	require.Equal(t, 512, n)

	// Verify the samples match what was written.
	for i := range samples {
		require.InDelta(t, float64(i), samples[i], 1.0)
	}

	// Reader should now return EOF
	_, err = sr.Read(samples)
	require.Equal(t, io.EOF, err)
}

func TestWriteSamplesPacking(t *testing.T) {
	f, err := os.OpenFile(filepath.Join(t.TempDir(), "test.edf"), os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, f.Close())
	})

	hdr := edf.Header{
		Version:            edf.Version0,
		StartTime:          time.Now(),
		DataRecordDuration: time.Second,
		SignalCount:        1,
		Signals: []edf.Signal{
			{
				Label:             "Flow",
				PhysicalDimension: "L/s",
				PhysicalMin:       -32768,
				PhysicalMax:       32767,
				DigitalMin:        -32768,
				DigitalMax:        32767,
				SamplesPerRecord:  10,
			},
		},
	}

	ew, err := edf.Create(f, hdr)
	require.NoError(t, err)

	// Deliver 25 samples in oddly-sized chunks; the writer packs them into
	// 10-sample records.
	samples := make([]float64, 25)
	for i := range samples {
		samples[i] = float64(i + 1)
	}
	require.NoError(t, ew.WriteSamples([][]float64{samples[:7]}))
	require.NoError(t, ew.WriteSamples([][]float64{samples[7:24]}))
	require.NoError(t, ew.WriteSamples([][]float64{samples[24:]}))

	// Close flushes the final partial record, zero-padded.
	require.NoError(t, ew.Close())

	_, err = f.Seek(0, io.SeekStart)
	require.NoError(t, err)

	er, err := edf.Open(f)
	require.NoError(t, err)
	require.Equal(t, 3, er.Header().DataRecords)

	sr, err := er.Signal(0)
	require.NoError(t, err)

	got := make([]float64, 30)
	n, err := sr.Read(got)
	require.NoError(t, err)
	require.Equal(t, 30, n)

	for i := 0; i < 25; i++ {
		require.InDelta(t, float64(i+1), got[i], 1.0)
	}
	for i := 25; i < 30; i++ {
		require.InDelta(t, 0.0, got[i], 1.0)
	}

	_, err = sr.Read(got)
	require.Equal(t, io.EOF, err)
}

func TestCreateRejectsMismatchedSignals(t *testing.T) {
	f, err := os.OpenFile(filepath.Join(t.TempDir(), "test.edf"), os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, f.Close())
	})

	_, err = edf.Create(f, edf.Header{SignalCount: 2})
	require.Error(t, err)
}
