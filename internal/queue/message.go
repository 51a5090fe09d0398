package queue

import (
	"fmt"
	"strings"

	"github.com/kursadbilgin/renewal-reminder/internal/domain"
)

// RunMessage asks a worker to execute one reminder run. Date is an optional
// YYYY-MM-DD override for live runs.
type RunMessage struct {
	RunID         string         `json:"runId"`
	CorrelationID string         `json:"correlationId,omitempty"`
	Mode          domain.RunMode `json:"mode"`
	Date          string         `json:"date,omitempty"`
}

func (m RunMessage) Validate() error {
	if strings.TrimSpace(m.RunID) == "" {
		return fmt.Errorf("runId is required")
	}
	if !m.Mode.IsValid() {
		return fmt.Errorf("invalid mode %q", m.Mode)
	}
	if m.Date != "" {
		if m.Mode != domain.RunModeLive {
			return fmt.Errorf("date override is only valid for live runs")
		}
		if _, err := domain.ParseDate(m.Date); err != nil {
			return err
		}
	}
	return nil
}
