package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ManuelReschke/OddsRaiders/app/models"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(day int) *time.Time {
	t := time.Date(2024, 8, day, 0, 0, 0, 0, time.UTC)
	return &t
}

func market(id uint, name string, at *time.Time) *models.Market {
	return &models.Market{ID: id, Name: name, SyncStamp: models.SyncStamp{ProviderUpdatedAt: at}}
}

func TestNewerThan(t *testing.T) {
	tests := []struct {
		name     string
		incoming *time.Time
		stored   *time.Time
		want     bool
	}{
		{name: "newer incoming", incoming: ts(2), stored: ts(1), want: true},
		{name: "equal", incoming: ts(1), stored: ts(1), want: false},
		{name: "older incoming", incoming: ts(1), stored: ts(2), want: false},
		{name: "incoming without timestamp", incoming: nil, stored: ts(2), want: true},
		{name: "stored without timestamp", incoming: ts(1), stored: nil, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, newerThan(tt.incoming)(tt.stored))
		})
	}
}

func TestUpsertNewestTimestampWins(t *testing.T) {
	store := newMemoryStore()
	r := NewReconciler(store)
	ctx := context.Background()

	res := r.Upsert(ctx, ResourceMarkets, []models.ExternalRecord{market(1, "Match Winner", ts(5))})
	assert.Equal(t, 1, res.Inserted)

	res = r.Upsert(ctx, ResourceMarkets, []models.ExternalRecord{market(1, "stale retry", ts(3))})
	assert.Equal(t, 1, res.Unchanged)
	assert.Equal(t, "Match Winner", store.get(models.TableMarkets, map[string]any{"id": uint(1)}).(*models.Market).Name)

	res = r.Upsert(ctx, ResourceMarkets, []models.ExternalRecord{market(1, "1X2", ts(6))})
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, "1X2", store.get(models.TableMarkets, map[string]any{"id": uint(1)}).(*models.Market).Name)

	res = r.Upsert(ctx, ResourceMarkets, []models.ExternalRecord{market(1, "untimed", nil)})
	assert.Equal(t, 1, res.Updated)
}

func TestUpsertDanglingReferenceIsPerRecord(t *testing.T) {
	store := newMemoryStore()
	store.seed(&models.Market{ID: 1, Name: "Match Winner"})
	r := NewReconciler(store)

	res := r.Upsert(context.Background(), ResourceOutcomes, []models.ExternalRecord{
		&models.Outcome{MarketID: 1, Value: "Home"},
		&models.Outcome{MarketID: 99, Value: "Over 2.5"},
		&models.Outcome{MarketID: 1, Value: "Away"},
	})

	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "outcomes{market_id=99,value=Over 2.5}", res.Failures[0].Key)
	assert.Equal(t, apperror.KindDanglingReference, res.Failures[0].Kind)
	assert.Equal(t, 2, store.count(models.TableOutcomes))
}

func TestUpsertRemembersWrittenKeys(t *testing.T) {
	store := newMemoryStore()
	r := NewReconciler(store)
	ctx := context.Background()

	r.Upsert(ctx, ResourceMarkets, []models.ExternalRecord{market(1, "Match Winner", nil)})
	// Remove the market behind the reconciler's back: the cached key still
	// satisfies the reference within this cycle.
	delete(store.rows[models.TableMarkets], recordKey(models.TableMarkets, map[string]any{"id": uint(1)}))

	res := r.Upsert(ctx, ResourceOutcomes, []models.ExternalRecord{&models.Outcome{MarketID: 1, Value: "Home"}})
	assert.Equal(t, 1, res.Inserted)
}

func TestUpsertContinuesAfterStoreError(t *testing.T) {
	store := newMemoryStore()
	store.failOn[recordKey(models.TableMarkets, map[string]any{"id": uint(2)})] = errors.New("deadlock found")
	r := NewReconciler(store)

	res := r.Upsert(context.Background(), ResourceMarkets, []models.ExternalRecord{
		market(1, "Match Winner", nil),
		market(2, "Home/Away", nil),
		market(3, "Second Half Winner", nil),
	})

	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 1, res.Failed)
	assert.Contains(t, res.Failures[0].Error, "deadlock")
	assert.Empty(t, res.Failures[0].Kind)
}

func TestFailuresAreCapped(t *testing.T) {
	r := NewReconciler(newMemoryStore())
	recs := make([]models.ExternalRecord, 0, maxFailuresPerResource+10)
	for i := 0; i < maxFailuresPerResource+10; i++ {
		recs = append(recs, &models.Outcome{MarketID: 7, Value: string(rune('a' + i%26)) + time.Duration(i).String()})
	}

	res := r.Upsert(context.Background(), ResourceOutcomes, recs)
	assert.Equal(t, maxFailuresPerResource+10, res.Failed)
	assert.Len(t, res.Failures, maxFailuresPerResource)
}

func TestDedupeKeepsNewest(t *testing.T) {
	out := dedupe([]models.ExternalRecord{
		market(1, "first", ts(2)),
		market(2, "other", nil),
		market(1, "older", ts(1)),
		market(1, "newest", ts(3)),
	})

	require.Len(t, out, 2)
	assert.Equal(t, "newest", out[0].(*models.Market).Name)
	assert.Equal(t, "other", out[1].(*models.Market).Name)
}

func TestRecordKeyIsDeterministic(t *testing.T) {
	key := map[string]any{"year": 2024, "league_id": uint(39)}
	assert.Equal(t, "seasons{league_id=39,year=2024}", recordKey(models.TableSeasons, key))
}

func TestDanglingReferencesAreCountedBeyondFailureCap(t *testing.T) {
	n := maxFailuresPerResource + 25
	recs := make([]models.ExternalRecord, 0, n)
	for i := 0; i < n; i++ {
		recs = append(recs, &models.Outcome{MarketID: 404, Value: fmt.Sprintf("line %d", i)})
	}

	res := NewReconciler(newMemoryStore()).Upsert(context.Background(), ResourceOutcomes, recs)
	assert.Equal(t, n, res.Failed)
	assert.Equal(t, n, res.Dangling)
	assert.Len(t, res.Failures, maxFailuresPerResource)

	sum := &Summary{Resources: []ResourceResult{res}}
	assert.Equal(t, n, sum.DanglingReferences())
	assert.Equal(t, models.IngestRunStatusPartial, sum.Status())
}
