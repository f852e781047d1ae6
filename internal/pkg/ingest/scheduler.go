package ingest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ManuelReschke/OddsRaiders/app/models"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/apperror"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/cache"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/sportsdata"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

// Fetcher retrieves one provider endpoint including all pages.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string, query map[string]string) (*sportsdata.Result, error)
}

// Archiver stores a raw provider page under key.
type Archiver interface {
	Put(ctx context.Context, key string, body []byte) error
}

// Locker prevents overlapping cycles across processes. TryLock returns
// cache.ErrLockHeld when another process owns the lock.
type Locker interface {
	TryLock(ctx context.Context) (unlock func(), err error)
}

type redisLocker struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

// NewRedisLocker returns a Locker backed by a Redis lease on key.
func NewRedisLocker(rdb *redis.Client, key string, ttl time.Duration) Locker {
	if key == "" {
		key = defaultLeaseKey
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &redisLocker{rdb: rdb, key: key, ttl: ttl}
}

func (l *redisLocker) TryLock(ctx context.Context) (func(), error) {
	lease, err := cache.AcquireLease(ctx, l.rdb, l.key, uuid.NewString(), l.ttl)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := lease.Release(context.Background()); err != nil {
			log.Warnf("[Ingest] release lease %s: %v", lease.Key(), err)
		}
	}, nil
}

// Deps are the optional collaborators of a Scheduler.
type Deps struct {
	Runs     RunRecorder
	Archiver Archiver
	Locker   Locker
	Now      func() time.Time
}

// Scheduler runs ingestion cycles: parallel fetch, serial apply in ApplyOrder.
type Scheduler struct {
	fetcher Fetcher
	store   Store
	cfg     Config
	deps    Deps
	running sync.Mutex
}

func NewScheduler(fetcher Fetcher, store Store, cfg Config, deps Deps) *Scheduler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Scheduler{fetcher: fetcher, store: store, cfg: cfg, deps: deps}
}

// fetched is the decoded outcome of one resource's fetch.
type fetched struct {
	records        []models.ExternalRecord
	decodeFailures []RecordFailure
	err            error
}

// RunCycle executes one ingestion cycle. It never fails: fetch and record
// errors are reported in the returned Summary. A cycle that overlaps a
// running one is skipped.
func (s *Scheduler) RunCycle(ctx context.Context) *Summary {
	sum := &Summary{RunID: uuid.NewString(), StartedAt: s.deps.Now().UTC()}

	if !s.running.TryLock() {
		log.Warn("[Ingest] cycle already running in this process, skipping")
		return sum.skip("cycle already running")
	}
	defer s.running.Unlock()

	if s.deps.Locker != nil {
		unlock, err := s.deps.Locker.TryLock(ctx)
		if err != nil {
			log.Warnf("[Ingest] cycle lock not acquired: %v", err)
			return sum.skip(err.Error())
		}
		defer unlock()
	}

	run := s.startRun(ctx, sum)
	memo := newMemoFetcher(s.fetcher, s.archiveFunc(sum))

	scope := s.cfg.scopeAt(sum.StartedAt)
	log.Infof("[Ingest] cycle %s started leagues=%v season=%d", sum.RunID, scope.Leagues, scope.Season)

	results := s.fetchWave(ctx, memo, scope, 1, dependencies{})
	if ctx.Err() == nil {
		batches := make(map[Resource][]models.ExternalRecord, len(results))
		for r, f := range results {
			batches[r] = f.records
		}
		deps := collectDependencies(batches, scope.MaxFixtures)
		for r, f := range s.fetchWave(ctx, memo, scope, 2, deps) {
			results[r] = f
		}
	}

	// Applying continues past a cancelled ctx only to finish the current
	// resource; cancellation is honoured between resources.
	applyCtx := context.WithoutCancel(ctx)
	rec := NewReconciler(s.store)
	for _, resource := range ApplyOrder {
		if ctx.Err() != nil {
			sum.Cancelled = true
			sum.Resources = append(sum.Resources, ResourceResult{Resource: resource, Cancelled: true})
			continue
		}

		f, ok := results[resource]
		if !ok {
			sum.Resources = append(sum.Resources, ResourceResult{Resource: resource, Cancelled: true})
			continue
		}
		if f.err != nil {
			fetchErr := apperror.Fetch(fmt.Sprintf("fetch %s", resource), f.err)
			log.Errorf("[Ingest] %s: %v", resource, fetchErr)
			sum.Resources = append(sum.Resources, ResourceResult{Resource: resource, FetchError: fetchErr.Error()})
			continue
		}

		res := rec.Upsert(applyCtx, resource, f.records)
		for _, df := range f.decodeFailures {
			res.Failed++
			if len(res.Failures) < maxFailuresPerResource {
				res.Failures = append(res.Failures, df)
			}
		}
		log.Infof("[Ingest] %s inserted=%d updated=%d unchanged=%d failed=%d",
			resource, res.Inserted, res.Updated, res.Unchanged, res.Failed)
		sum.Resources = append(sum.Resources, res)
	}

	sum.FinishedAt = s.deps.Now().UTC()
	s.finishRun(applyCtx, run, sum)

	ins, upd, failed := sum.Totals()
	log.Infof("[Ingest] cycle %s finished status=%s inserted=%d updated=%d failed=%d fetch_failures=%d dangling=%d",
		sum.RunID, sum.Status(), ins, upd, failed, len(sum.FetchFailures()), sum.DanglingReferences())
	return sum
}

// fetchWave fetches every resource of wave with bounded concurrency. Errors are
// captured per resource and never cancel siblings.
func (s *Scheduler) fetchWave(ctx context.Context, f Fetcher, scope Scope, wave int, deps dependencies) map[Resource]fetched {
	var (
		mu  sync.Mutex
		out = make(map[Resource]fetched)
		g   errgroup.Group
	)
	g.SetLimit(s.cfg.Concurrency)

	for _, resource := range ApplyOrder {
		spec := registry[resource]
		if spec.wave != wave {
			continue
		}
		g.Go(func() error {
			res := fetchResource(ctx, f, spec, scope, deps)
			mu.Lock()
			out[spec.resource] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func fetchResource(ctx context.Context, f Fetcher, spec resourceSpec, scope Scope, deps dependencies) fetched {
	var out fetched
	for _, req := range spec.requests(scope, deps) {
		if err := ctx.Err(); err != nil {
			return fetched{err: err}
		}
		result, err := f.Fetch(ctx, req.Endpoint, req.Query)
		if err != nil {
			return fetched{err: err}
		}
		for i, item := range result.Items {
			recs, err := spec.decode(item, req)
			if err != nil {
				out.decodeFailures = append(out.decodeFailures, RecordFailure{
					Key:   fmt.Sprintf("%s#%d", req.key(), i),
					Kind:  apperror.KindMalformedPayload,
					Error: err.Error(),
				})
				continue
			}
			out.records = append(out.records, recs...)
		}
	}
	out.records = dedupe(out.records)
	return out
}

func (s *Scheduler) startRun(ctx context.Context, sum *Summary) *models.IngestRun {
	if s.deps.Runs == nil {
		return nil
	}
	run := &models.IngestRun{RunID: sum.RunID, Status: models.IngestRunStatusRunning, StartedAt: sum.StartedAt}
	if s.deps.Archiver != nil {
		run.ArchivePrefix = sum.archivePrefix()
	}
	if err := s.deps.Runs.StartRun(ctx, run); err != nil {
		log.Warnf("[Ingest] record run start: %v", err)
		return nil
	}
	return run
}

func (s *Scheduler) finishRun(ctx context.Context, run *models.IngestRun, sum *Summary) {
	if run == nil {
		return
	}
	finished := sum.FinishedAt
	run.FinishedAt = &finished
	run.Status = sum.Status()
	run.Inserted, run.Updated, run.Failed = sum.Totals()
	if raw, err := json.Marshal(sum); err == nil {
		run.Summary = datatypes.JSON(raw)
	}
	if err := s.deps.Runs.FinishRun(ctx, run); err != nil {
		log.Warnf("[Ingest] record run finish: %v", err)
	}
}

func (s *Scheduler) archiveFunc(sum *Summary) func(ctx context.Context, req Request, pages [][]byte) {
	if s.deps.Archiver == nil {
		return nil
	}
	prefix := sum.archivePrefix()
	var seq atomic.Int64
	return func(ctx context.Context, req Request, pages [][]byte) {
		for _, page := range pages {
			key := fmt.Sprintf("%s/%04d-%s.json", prefix, seq.Add(1), archiveSlug(req))
			if err := s.deps.Archiver.Put(ctx, key, page); err != nil {
				log.Warnf("[Ingest] archive %s: %v", key, err)
			}
		}
	}
}

func archiveSlug(req Request) string {
	r := strings.NewReplacer("/", "_", "?", "_", "&", "_", "=", "-")
	return r.Replace(strings.TrimPrefix(req.key(), "/"))
}

// memoFetcher makes each distinct request at most once per cycle, so
// resources sharing an endpoint reuse the same response.
type memoFetcher struct {
	inner   Fetcher
	archive func(ctx context.Context, req Request, pages [][]byte)
	mu      sync.Mutex
	calls   map[string]*memoCall
}

type memoCall struct {
	once sync.Once
	res  *sportsdata.Result
	err  error
}

func newMemoFetcher(inner Fetcher, archive func(context.Context, Request, [][]byte)) *memoFetcher {
	return &memoFetcher{inner: inner, archive: archive, calls: make(map[string]*memoCall)}
}

func (m *memoFetcher) Fetch(ctx context.Context, endpoint string, query map[string]string) (*sportsdata.Result, error) {
	req := Request{Endpoint: endpoint, Query: query}
	key := req.key()

	m.mu.Lock()
	call, ok := m.calls[key]
	if !ok {
		call = &memoCall{}
		m.calls[key] = call
	}
	m.mu.Unlock()

	call.once.Do(func() {
		call.res, call.err = m.inner.Fetch(ctx, endpoint, query)
		if call.err == nil && m.archive != nil {
			m.archive(ctx, req, call.res.Pages)
		}
	})
	return call.res, call.err
}
