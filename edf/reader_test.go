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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderHeader(t *testing.T) {
	f, err := os.OpenFile(filepath.Join(t.TempDir(), "test.edf"), os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, f.Close())
	})

	start := time.Date(2024, 5, 17, 22, 4, 31, 0, time.UTC)

	hdr := edf.Header{
		Version:            edf.Version0,
		PatientID:          "Patient X",
		RecordingID:        "Recording 1",
		StartTime:          start,
		DataRecordDuration: time.Second,
		SignalCount:        2,
		Signals: []edf.Signal{
			{
				Label:             "EMG1",
				PhysicalDimension: "mV",
				PhysicalMin:       -32768,
				PhysicalMax:       32767,
				DigitalMin:        -32768,
				DigitalMax:        32767,
				SamplesPerRecord:  64,
			},
			{
				Label:             "MARKER",
				PhysicalMin:       0,
				PhysicalMax:       255,
				DigitalMin:        -32768,
				DigitalMax:        32767,
				SamplesPerRecord:  64,
			},
		},
	}

	ew, err := edf.Create(f, hdr)
	require.NoError(t, err)
	require.NoError(t, ew.WriteSamples([][]float64{make([]float64, 64), make([]float64, 64)}))
	require.NoError(t, ew.Close())

	_, err = f.Seek(0, io.SeekStart)
	require.NoError(t, err)

	er, err := edf.Open(f)
	require.NoError(t, err)

	got := er.Header()
	assert.Equal(t, edf.Version0, got.Version)
	assert.Equal(t, "Patient X", got.PatientID)
	assert.Equal(t, "Recording 1", got.RecordingID)
	assert.Equal(t, start, got.StartTime)
	assert.Equal(t, 256+2*256, got.HeaderBytes)
	assert.Equal(t, time.Second, got.DataRecordDuration)
	assert.Equal(t, 1, got.DataRecords)
	require.Equal(t, 2, got.SignalCount)

	assert.Equal(t, "EMG1", got.Signals[0].Label)
	assert.Equal(t, "mV", got.Signals[0].PhysicalDimension)
	assert.Equal(t, -32768.0, got.Signals[0].PhysicalMin)
	assert.Equal(t, 32767.0, got.Signals[0].PhysicalMax)
	assert.Equal(t, -32768, got.Signals[0].DigitalMin)
	assert.Equal(t, 32767, got.Signals[0].DigitalMax)
	assert.Equal(t, 64, got.Signals[0].SamplesPerRecord)

	assert.Equal(t, "MARKER", got.Signals[1].Label)
	assert.Equal(t, 0.0, got.Signals[1].PhysicalMin)
	assert.Equal(t, 255.0, got.Signals[1].PhysicalMax)
}
