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
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

const (
	manufacturer = "Becker Meditec"
	modelName    = "Varioport"
)

// Sidecar is the JSON metadata document written alongside the EDF file.
type Sidecar struct {
	TaskName               string   `json:"TaskName"`
	SamplingFrequency      float64  `json:"SamplingFrequency"`
	StartTime              float64  `json:"StartTime"`
	Columns                []string `json:"Columns"`
	Manufacturer           string   `json:"Manufacturer"`
	ManufacturersModelName string   `json:"ManufacturersModelName"`
	Note                   string   `json:"Note,omitempty"`
}

// Sidecar builds the metadata document for the file. No absolute-time
// recovery is attempted, so StartTime is always zero.
func (f *File) Sidecar(taskName string) Sidecar {
	s := Sidecar{
		TaskName:               strings.TrimPrefix(taskName, "task-"),
		SamplingFrequency:      f.StreamRate(),
		Columns:                make([]string, 0, len(f.Active)),
		Manufacturer:           manufacturer,
		ManufacturersModelName: modelName,
	}

	for _, c := range f.Active {
		s.Columns = append(s.Columns, c.Name)
	}

	if f.opts.BaseRateOverride > 0 {
		s.Note = fmt.Sprintf("base scan rate forced to %g Hz by the caller, file declares %d Hz",
			f.opts.BaseRateOverride, f.Header.BaseScanRate)
	}

	return s
}

// WriteSidecar writes the JSON sidecar document to path.
func (f *File) WriteSidecar(path, taskName string) error {
	b, err := json.MarshalIndent(f.Sidecar(taskName), "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, append(b, '\n'), 0o644)
}
