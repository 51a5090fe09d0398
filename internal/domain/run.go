package domain

import (
	"fmt"
	"strings"
	"time"
)

// RunMode selects between a real dispatch run and a connectivity check.
type RunMode string

const (
	RunModeLive       RunMode = "live"
	RunModeDiagnostic RunMode = "diagnostic"
)

func (m RunMode) String() string { return string(m) }

func (m RunMode) IsValid() bool {
	switch m {
	case RunModeLive, RunModeDiagnostic:
		return true
	}
	return false
}

func ParseRunModeFromString(s string) (RunMode, error) {
	mode := RunMode(strings.ToLower(strings.TrimSpace(s)))
	if !mode.IsValid() {
		return "", fmt.Errorf("%w: invalid run mode %q", ErrValidation, s)
	}
	return mode, nil
}

// RunSummary is the result of a live run. Skipped counts dedup skips only.
type RunSummary struct {
	Date    time.Time
	Sent    int
	Skipped int
	Errors  int
}

// DiagnosticStatus is the per-channel outcome of a diagnostic run.
type DiagnosticStatus string

const (
	DiagnosticStatusSent    DiagnosticStatus = "sent"
	DiagnosticStatusFailed  DiagnosticStatus = "failed"
	DiagnosticStatusSkipped DiagnosticStatus = "skipped"
)

func (s DiagnosticStatus) String() string { return string(s) }

// DiagnosticResult reports what a diagnostic run did per channel.
type DiagnosticResult struct {
	Date     time.Time
	Channels map[Channel]DiagnosticStatus
}
