// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2025 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package varioport

import "strings"

// ScalingProfile converts a raw integer sample into a physical unit value
// as (raw - ZeroOffset) * Multiplier / Divisor.
type ScalingProfile struct {
	ZeroOffset float64
	Multiplier float64
	Divisor    float64
}

// Apply converts a raw sample value to its physical value.
func (p ScalingProfile) Apply(raw float64) float64 {
	return (raw - p.ZeroOffset) * p.Multiplier / p.Divisor
}

// defaultScaling maps channel-name prefixes to the recorder's factory
// scaling, used for channels whose descriptors carry no usable scaling
// triple of their own. Matched case-insensitively, first match wins.
var defaultScaling = []struct {
	prefix  string
	profile ScalingProfile
}{
	{"EDA", ScalingProfile{ZeroOffset: 32767, Multiplier: 10, Divisor: 6400}},
	{"EMG1", ScalingProfile{ZeroOffset: 32767, Multiplier: 1600, Divisor: 3276}},
	{"EMG2", ScalingProfile{ZeroOffset: 32767, Multiplier: 1600, Divisor: 3276}},
	{"AUX", ScalingProfile{ZeroOffset: 32767, Multiplier: 10, Divisor: 3276}},
	{"UBATT", ScalingProfile{ZeroOffset: 0, Multiplier: 44, Divisor: 1000}},
	{"BATT", ScalingProfile{ZeroOffset: 0, Multiplier: 44, Divisor: 1000}},
}

// passthrough leaves raw values untouched.
var passthrough = ScalingProfile{ZeroOffset: 0, Multiplier: 1, Divisor: 1}

// ResolveScaling returns the scaling profile for a channel: the channel's
// own triple when it is usable, otherwise the factory default matching the
// channel name, otherwise a passthrough profile.
func ResolveScaling(c ChannelDescriptor) ScalingProfile {
	p := passthrough
	if c.ScaleMultiplier != 0 && c.ScaleDivisor != 0 {
		p = ScalingProfile{
			ZeroOffset: float64(c.ScaleOffset),
			Multiplier: float64(c.ScaleMultiplier),
			Divisor:    float64(c.ScaleDivisor),
		}
	} else {
		name := strings.ToUpper(c.Name)
		for _, e := range defaultScaling {
			if strings.HasPrefix(name, e.prefix) {
				p = e.profile
				break
			}
		}
	}

	// Guard the division even if a zero divisor slips through substitution.
	if p.Divisor == 0 {
		p.Divisor = 1
	}

	return p
}
