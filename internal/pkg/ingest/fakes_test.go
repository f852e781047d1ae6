package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ManuelReschke/OddsRaiders/app/models"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/sportsdata"
	jsoniter "github.com/json-iterator/go"
)

type storedRecord struct {
	rec       models.ExternalRecord
	updatedAt *time.Time
}

type memoryStore struct {
	mu      sync.Mutex
	rows    map[string]map[string]storedRecord
	applies int
	failOn  map[string]error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{rows: make(map[string]map[string]storedRecord), failOn: map[string]error{}}
}

func (m *memoryStore) Exists(_ context.Context, table string, key map[string]any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[table][recordKey(table, key)]
	return ok, nil
}

func (m *memoryStore) Apply(_ context.Context, rec models.ExternalRecord, newer NewerFunc) (ApplyOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applies++

	key := recordKey(rec.TableName(), rec.NaturalKey())
	if err, ok := m.failOn[key]; ok {
		return 0, err
	}
	table := m.rows[rec.TableName()]
	if table == nil {
		table = make(map[string]storedRecord)
		m.rows[rec.TableName()] = table
	}
	existing, ok := table[key]
	if !ok {
		table[key] = storedRecord{rec: rec, updatedAt: rec.LastModified()}
		return OutcomeInserted, nil
	}
	if !newer(existing.updatedAt) {
		return OutcomeUnchanged, nil
	}
	table[key] = storedRecord{rec: rec, updatedAt: rec.LastModified()}
	return OutcomeUpdated, nil
}

func (m *memoryStore) seed(rec models.ExternalRecord) {
	_, _ = m.Apply(context.Background(), rec, func(*time.Time) bool { return true })
	m.applies = 0
}

func (m *memoryStore) count(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows[table])
}

func (m *memoryStore) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.rows {
		n += len(t)
	}
	return n
}

func (m *memoryStore) get(table string, key map[string]any) models.ExternalRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[table][recordKey(table, key)].rec
}

// fakeFetcher serves canned items per endpoint, ignoring the query.
type fakeFetcher struct {
	mu       sync.Mutex
	payloads map[string]string
	errs     map[string]error
	calls    map[string]int
	onFetch  func(endpoint string)
}

func newFakeFetcher(payloads map[string]string) *fakeFetcher {
	return &fakeFetcher{payloads: payloads, errs: map[string]error{}, calls: map[string]int{}}
}

func (f *fakeFetcher) Fetch(ctx context.Context, endpoint string, query map[string]string) (*sportsdata.Result, error) {
	f.mu.Lock()
	f.calls[Request{Endpoint: endpoint, Query: query}.key()]++
	err := f.errs[endpoint]
	raw, ok := f.payloads[endpoint]
	hook := f.onFetch
	f.mu.Unlock()

	if hook != nil {
		hook(endpoint)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		raw = "[]"
	}
	var items []jsoniter.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, errors.New("bad fixture payload for " + endpoint)
	}
	return &sportsdata.Result{Endpoint: endpoint, Query: query, Items: items, Pages: [][]byte{[]byte(raw)}}, nil
}

func (f *fakeFetcher) callsTo(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for k, c := range f.calls {
		if k == endpoint || len(k) > len(endpoint) && k[:len(endpoint)+1] == endpoint+"?" {
			n += c
		}
	}
	return n
}

type fakeLocker struct {
	err      error
	unlocked int
}

func (l *fakeLocker) TryLock(context.Context) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	return func() { l.unlocked++ }, nil
}

type fakeRuns struct {
	started  []*models.IngestRun
	finished []*models.IngestRun
}

func (r *fakeRuns) StartRun(_ context.Context, run *models.IngestRun) error {
	cp := *run
	r.started = append(r.started, &cp)
	return nil
}

func (r *fakeRuns) FinishRun(_ context.Context, run *models.IngestRun) error {
	cp := *run
	r.finished = append(r.finished, &cp)
	return nil
}

type fakeArchiver struct {
	mu   sync.Mutex
	keys []string
}

func (a *fakeArchiver) Put(_ context.Context, key string, _ []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.keys = append(a.keys, key)
	return nil
}

// providerPayloads is one small but complete league snapshot.
func providerPayloads() map[string]string {
	return map[string]string{
		"countries": `[{"name":"England","code":"GB","flag":"https://media.example/flags/gb.svg"}]`,
		"leagues": `[{"update":"2024-08-01T00:00:00+00:00",
			"league":{"id":39,"name":"Premier League","type":"League"},
			"country":{"name":"England"},
			"seasons":[{"year":2024,"start":"2024-08-16","end":"2025-05-25","current":true}]}]`,
		"teams": `[
			{"team":{"id":33,"name":"Manchester United","code":"MUN","country":"England","founded":1878},"venue":{"id":556,"name":"Old Trafford","city":"Manchester","capacity":76212}},
			{"team":{"id":34,"name":"Newcastle","code":"NEW","country":"England","founded":1892},"venue":{"id":562,"name":"St. James' Park","city":"Newcastle upon Tyne"}},
			{"team":{"id":40,"name":"Liverpool","code":"LIV","country":"England","founded":1892},"venue":{"id":550,"name":"Anfield","city":"Liverpool"}}]`,
		"players": `[{"player":{"id":882,"name":"B. Fernandes","firstname":"Bruno","lastname":"Fernandes","age":30},"statistics":[{"team":{"id":33}}]}]`,
		"fixtures": `[{"fixture":{"id":1001,"referee":"M. Oliver","timezone":"UTC","date":"2024-08-16T19:00:00+00:00",
			"venue":{"id":556},"status":{"long":"Not Started","short":"NS","elapsed":null}},
			"league":{"id":39,"season":2024,"round":"Regular Season - 1"},
			"teams":{"home":{"id":33},"away":{"id":34}},"goals":{"home":null,"away":null}}]`,
		"odds/bets":       `[{"id":1,"name":"Match Winner"}]`,
		"odds/bookmakers": `[{"id":8,"name":"Bet365"}]`,
		"odds": `[{"fixture":{"id":1001},"update":"2024-08-15T10:00:00+00:00",
			"bookmakers":[{"id":8,"name":"Bet365","bets":[{"id":1,"name":"Match Winner",
			"values":[{"value":"Home","odd":"1.85"},{"value":"Draw","odd":"3.60"},{"value":"Away","odd":"4.20"}]}]}]}]`,
		"standings": `[{"league":{"id":39,"season":2024,"standings":[[
			{"rank":1,"team":{"id":40},"points":3,"goalsDiff":2,"group":"Premier League","form":"W",
			"all":{"played":1,"win":1,"draw":0,"lose":0,"goals":{"for":2,"against":0}},"update":"2024-08-18T00:00:00+00:00"}]]}}]`,
		"coachs":          `[{"id":7,"name":"E. ten Hag","nationality":"Netherlands"}]`,
		"fixtures/events": `[{"type":"Goal","detail":"Normal Goal"},{"type":"Card","detail":"Yellow Card"},{"type":"Goal","detail":"Normal Goal"}]`,
		"predictions": `[{"predictions":{"winner":{"id":33,"comment":"Win or draw"},"win_or_draw":true,"under_over":"-3.5",
			"goals":{"home":"-2.5","away":"-1.5"},"advice":"Double chance : Manchester United or draw",
			"percent":{"home":"45%","draw":"45%","away":"10%"}},"comparison":{"total":{"home":"55%","away":"45%"}}}]`,
		"fixtures/statistics": `[{"team":{"id":33},"statistics":[{"type":"Shots on Goal","value":5},{"type":"Ball Possession","value":"55%"},{"type":"Red Cards","value":null}]}]`,
		"fixtures/lineups":    `[{"team":{"id":33},"formation":"4-2-3-1","startXI":[{"player":{"id":882,"number":8,"pos":"M","grid":"3:2"}}],"substitutes":[]}]`,
	}
}

func testConfig() Config {
	return Config{Scope: Scope{Leagues: []int{39}, Season: 2024, MaxFixtures: 10}, Concurrency: 3}
}
