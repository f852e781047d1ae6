package ingest

import (
	"fmt"
	"time"

	"github.com/ManuelReschke/OddsRaiders/app/models"
)

// Summary is the result of one cycle, one ResourceResult per resource in
// ApplyOrder.
type Summary struct {
	RunID      string           `json:"run_id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Skipped    bool             `json:"skipped,omitempty"`
	SkipReason string           `json:"skip_reason,omitempty"`
	Cancelled  bool             `json:"cancelled,omitempty"`
	Resources  []ResourceResult `json:"resources"`
}

func (s *Summary) skip(reason string) *Summary {
	s.Skipped = true
	s.SkipReason = reason
	s.FinishedAt = s.StartedAt
	return s
}

// Result returns the entry for r, or nil when the cycle never reached it.
func (s *Summary) Result(r Resource) *ResourceResult {
	for i := range s.Resources {
		if s.Resources[i].Resource == r {
			return &s.Resources[i]
		}
	}
	return nil
}

func (s *Summary) Totals() (inserted, updated, failed int) {
	for _, r := range s.Resources {
		inserted += r.Inserted
		updated += r.Updated
		failed += r.Failed
	}
	return inserted, updated, failed
}

// FetchFailures lists the resources whose fetch failed.
func (s *Summary) FetchFailures() []Resource {
	var out []Resource
	for _, r := range s.Resources {
		if r.FetchError != "" {
			out = append(out, r.Resource)
		}
	}
	return out
}

// DanglingReferences counts records rejected for missing references. Any
// non-zero value points at an ordering bug.
func (s *Summary) DanglingReferences() int {
	n := 0
	for _, r := range s.Resources {
		n += r.Dangling
	}
	return n
}

// Status maps the summary onto an IngestRun status.
func (s *Summary) Status() string {
	switch {
	case s.Cancelled:
		return models.IngestRunStatusCancelled
	case len(s.FetchFailures()) > 0:
		return models.IngestRunStatusPartial
	}
	if _, _, failed := s.Totals(); failed > 0 {
		return models.IngestRunStatusPartial
	}
	return models.IngestRunStatusCompleted
}

func (s *Summary) archivePrefix() string {
	return fmt.Sprintf("%s/%s/%s", defaultArchiveRoot, s.StartedAt.Format("2006/01/02"), s.RunID)
}
