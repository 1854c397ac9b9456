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
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/OpenPSG/varioport/edf"
)

// recordDuration is the length of one EDF data record in the output file.
const recordDuration = time.Second

// Digital output range of the EDF container, 16-bit signed samples.
const (
	digitalMin = -32768
	digitalMax = 32767
)

var (
	// ErrWriterInit is returned when the EDF writer rejects the output
	// header. No sample data has been written at that point.
	ErrWriterInit = errors.New("varioport: edf writer initialization failed")

	// ErrSidecarWrite is returned when the sidecar cannot be written after
	// the EDF file has already been finalized. The EDF file is still valid.
	ErrSidecarWrite = errors.New("varioport: sidecar write failed")
)

// Convert decodes the Varioport file at inputPath and writes an EDF file
// and a JSON metadata sidecar to the given paths. taskName is recorded in
// the sidecar, minus any leading "task-" prefix.
//
// On error the output files should be treated as invalid, with one
// exception: an ErrSidecarWrite error leaves a complete EDF file behind.
// The sidecar is only ever written after the EDF file has been finalized.
func Convert(inputPath, edfPath, sidecarPath, taskName string, opts *Options) error {
	in, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("error opening input: %w", err)
	}
	defer in.Close()

	f, err := Open(in, opts)
	if err != nil {
		return err
	}

	out, err := os.OpenFile(edfPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("error creating output file: %w", err)
	}

	if err := f.Transcode(out); err != nil {
		_ = out.Close()
		return err
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("error closing output file: %w", err)
	}

	if err := f.WriteSidecar(sidecarPath, taskName); err != nil {
		return fmt.Errorf("%w: %v", ErrSidecarWrite, err)
	}

	return nil
}

// Transcode decodes the file and writes it to w as EDF. Demultiplexed
// files are decoded channel by channel and written in one pass;
// multiplexed files are streamed chunk by chunk in bounded memory.
func (f *File) Transcode(w io.WriteSeeker) error {
	hdr := edf.Header{
		Version:            edf.Version0,
		RecordingID:        "Varioport recording",
		StartTime:          time.Unix(0, 0).UTC(),
		DataRecordDuration: recordDuration,
		SignalCount:        len(f.Active),
		Signals:            f.edfSignals(),
	}

	ew, err := edf.Create(w, hdr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriterInit, err)
	}

	if f.Header.Multiplexed() {
		cr, err := f.Chunks()
		if err != nil {
			return err
		}

		for {
			chunk, err := cr.Next()
			if err == io.EOF {
				break
			} else if err != nil {
				return err
			}

			if err := ew.WriteSamples(chunk); err != nil {
				return fmt.Errorf("error writing edf records: %w", err)
			}
		}
	} else {
		decoded, err := f.DecodeDemultiplexed()
		if err != nil {
			return err
		}

		samples := make([][]float64, len(decoded))
		for i := range decoded {
			samples[i] = decoded[i].Samples
		}

		if err := ew.WriteSamples(samples); err != nil {
			return fmt.Errorf("error writing edf records: %w", err)
		}
	}

	if err := ew.Close(); err != nil {
		return fmt.Errorf("error finalizing edf file: %w", err)
	}

	return nil
}

// edfSignals builds one EDF signal header per active channel. All signals
// share the stream rate: the container carries one interleaved record
// stream, so per-channel declared rates are already folded into it.
func (f *File) edfSignals() []edf.Signal {
	samplesPerRecord := int(math.Round(f.StreamRate() * recordDuration.Seconds()))
	if samplesPerRecord < 1 {
		samplesPerRecord = 1
	}

	signals := make([]edf.Signal, len(f.Active))
	for i, c := range f.Active {
		pmin, pmax := physicalRange(c.Name)
		signals[i] = edf.Signal{
			Label:             c.Name,
			PhysicalDimension: c.Unit,
			PhysicalMin:       pmin,
			PhysicalMax:       pmax,
			DigitalMin:        digitalMin,
			DigitalMax:        digitalMax,
			SamplesPerRecord:  samplesPerRecord,
		}
	}

	return signals
}

// physicalRange returns the physical value range advertised in the EDF
// signal header. Known channel kinds get tighter ranges; everything else
// maps the digital range one to one.
func physicalRange(name string) (min, max float64) {
	switch n := strings.ToLower(name); {
	case strings.Contains(n, "ekg"):
		return -50000, 50000
	case strings.Contains(n, "marker"):
		return 0, 255
	case strings.Contains(n, "batt"):
		return 0, 20
	default:
		return digitalMin, digitalMax
	}
}
