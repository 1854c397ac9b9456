// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2025 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package varioport

import "fmt"

// Severity classifies a diagnostic event.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// Diagnostic is a non-fatal event observed while decoding, such as a
// skipped channel or synthetic padding.
type Diagnostic struct {
	Severity Severity
	Message  string
}

// DiagFunc receives diagnostics from the decoder. A nil DiagFunc discards
// them, keeping the decoder usable headlessly.
type DiagFunc func(Diagnostic)

func (f DiagFunc) emit(sev Severity, format string, args ...any) {
	if f != nil {
		f(Diagnostic{Severity: sev, Message: fmt.Sprintf(format, args...)})
	}
}

func (f DiagFunc) infof(format string, args ...any) { f.emit(SeverityInfo, format, args...) }
func (f DiagFunc) warnf(format string, args ...any) { f.emit(SeverityWarning, format, args...) }
