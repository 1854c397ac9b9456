// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2025 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Command varioport2edf converts Varioport recorder dumps to EDF files with
// JSON metadata sidecars, one pair of output files per input file.
package main

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/OpenPSG/varioport"
)

var cli struct {
	Verbose bool          `help:"Prints debug output"`
	Task    string        `help:"Task name recorded in the sidecar" default:"rest"`
	Rate    float64       `help:"Override the base scan rate declared in the file (Hz)"`
	Chunk   time.Duration `help:"Chunk duration for multiplexed decoding" default:"1m"`
	Files   []string      `arg:"" help:"Varioport files to convert"`
}

func main() {
	_ = kong.Parse(&cli)
	if cli.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	opts := &varioport.Options{
		BaseRateOverride: cli.Rate,
		ChunkDuration:    cli.Chunk,
		Diagnostics: func(d varioport.Diagnostic) {
			if d.Severity == varioport.SeverityWarning {
				log.Warn(d.Message)
			} else {
				log.Debug(d.Message)
			}
		},
	}

	for _, path := range cli.Files {
		base := strings.TrimSuffix(path, filepath.Ext(path))
		edfPath := base + ".edf"
		sidecarPath := base + ".json"

		log.Debugf("Converting %s to %s", path, edfPath)
		if err := varioport.Convert(path, edfPath, sidecarPath, cli.Task, opts); err != nil {
			log.Fatalf("Could not convert %s: %s", path, err.Error())
		}
		log.Infof("Wrote %s and %s", edfPath, sidecarPath)
	}
}
