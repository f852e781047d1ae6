package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ManuelReschke/OddsRaiders/app/models"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/apperror"
	"github.com/gofiber/fiber/v2/log"
)

const maxFailuresPerResource = 50

// RecordFailure describes one record that could not be applied.
type RecordFailure struct {
	Key   string        `json:"key"`
	Kind  apperror.Kind `json:"kind,omitempty"`
	Error string        `json:"error"`
}

// ResourceResult is the outcome of one resource type in a cycle.
type ResourceResult struct {
	Resource   Resource        `json:"resource"`
	Inserted   int             `json:"inserted"`
	Updated    int             `json:"updated"`
	Unchanged  int             `json:"unchanged"`
	Failed     int             `json:"failed"`
	Dangling   int             `json:"dangling,omitempty"`
	FetchError string          `json:"fetch_error,omitempty"`
	Cancelled  bool            `json:"cancelled,omitempty"`
	Failures   []RecordFailure `json:"failures,omitempty"`
}

// Succeeded reports whether the resource was fetched and applied.
func (r ResourceResult) Succeeded() bool {
	return r.FetchError == "" && !r.Cancelled
}

// addFailure counts every failure but keeps only the first
// maxFailuresPerResource details.
func (r *ResourceResult) addFailure(key string, err error) {
	r.Failed++
	if errors.Is(err, apperror.ErrDanglingReference) {
		r.Dangling++
	}
	if len(r.Failures) >= maxFailuresPerResource {
		return
	}
	r.Failures = append(r.Failures, RecordFailure{Key: key, Kind: apperror.KindOf(err), Error: err.Error()})
}

// Reconciler upserts batches of external records. It remembers every key it
// has seen present during its lifetime, so one Reconciler serves one cycle.
type Reconciler struct {
	store Store
	known map[string]struct{}
}

func NewReconciler(store Store) *Reconciler {
	return &Reconciler{store: store, known: make(map[string]struct{})}
}

// Upsert applies records of one resource type. Records whose references are
// missing fail with a dangling reference error; other records continue.
func (r *Reconciler) Upsert(ctx context.Context, resource Resource, records []models.ExternalRecord) ResourceResult {
	res := ResourceResult{Resource: resource}
	for _, rec := range records {
		key := recordKey(rec.TableName(), rec.NaturalKey())

		if err := r.checkReferences(ctx, rec); err != nil {
			if errors.Is(err, apperror.ErrDanglingReference) {
				log.Errorf("[Ingest] %s %s: %v", resource, key, err)
			}
			res.addFailure(key, err)
			continue
		}

		outcome, err := r.store.Apply(ctx, rec, newerThan(rec.LastModified()))
		if err != nil {
			log.Warnf("[Ingest] %s %s: %v", resource, key, err)
			res.addFailure(key, err)
			continue
		}
		r.known[key] = struct{}{}

		switch outcome {
		case OutcomeInserted:
			res.Inserted++
		case OutcomeUpdated:
			res.Updated++
		default:
			res.Unchanged++
		}
	}
	return res
}

func (r *Reconciler) checkReferences(ctx context.Context, rec models.ExternalRecord) error {
	for _, ref := range rec.References() {
		key := recordKey(ref.Table, ref.Key)
		if _, ok := r.known[key]; ok {
			continue
		}
		exists, err := r.store.Exists(ctx, ref.Table, ref.Key)
		if err != nil {
			return err
		}
		if !exists {
			return apperror.DanglingReference(fmt.Sprintf("%s references missing %s", rec.TableName(), key))
		}
		r.known[key] = struct{}{}
	}
	return nil
}

// newerThan implements newest-provider-timestamp-wins. Records without a
// provider timestamp always overwrite.
func newerThan(incoming *time.Time) NewerFunc {
	return func(stored *time.Time) bool {
		if incoming == nil || stored == nil {
			return true
		}
		return incoming.After(*stored)
	}
}

// recordKey renders table and natural key deterministically, e.g.
// "seasons{league_id=39,year=2024}".
func recordKey(table string, key map[string]any) string {
	cols := make([]string, 0, len(key))
	for c := range key {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	var b strings.Builder
	b.WriteString(table)
	b.WriteByte('{')
	for i, c := range cols {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s=%v", c, key[c])
	}
	b.WriteByte('}')
	return b.String()
}

// dedupe keeps one record per natural key, preferring the newest provider
// timestamp and otherwise the last one seen.
func dedupe(records []models.ExternalRecord) []models.ExternalRecord {
	index := make(map[string]int, len(records))
	out := make([]models.ExternalRecord, 0, len(records))
	for _, rec := range records {
		key := recordKey(rec.TableName(), rec.NaturalKey())
		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, rec)
			continue
		}
		if newerThan(rec.LastModified())(out[i].LastModified()) {
			out[i] = rec
		}
	}
	return out
}
