package ingest

import (
	"sort"
	"strconv"
	"time"

	"github.com/ManuelReschke/OddsRaiders/app/models"
	jsoniter "github.com/json-iterator/go"
)

// Resource is one category of provider data fetched and reconciled on its own.
type Resource string

const (
	ResourceCountries     Resource = "countries"
	ResourceLeagues       Resource = "leagues"
	ResourceSeasons       Resource = "seasons"
	ResourceTeams         Resource = "teams"
	ResourceVenues        Resource = "venues"
	ResourcePlayers       Resource = "players"
	ResourceCoaches       Resource = "coaches"
	ResourceFixtureStatus Resource = "fixture_statuses"
	ResourceEventTypes    Resource = "event_types"
	ResourceMarkets       Resource = "markets"
	ResourceOutcomes      Resource = "outcomes"
	ResourceProviders     Resource = "providers"
	ResourceFixtures      Resource = "fixtures"
	ResourceOdds          Resource = "odds"
	ResourcePredictions   Resource = "predictions"
	ResourceStandings     Resource = "standings"
	ResourceStatisticals  Resource = "statisticals"
	ResourceLineups       Resource = "lineups"
)

// ApplyOrder is the dependency order in which batches are written. A record
// may only reference resources that appear before its own.
var ApplyOrder = []Resource{
	ResourceCountries,
	ResourceLeagues,
	ResourceSeasons,
	ResourceTeams,
	ResourceVenues,
	ResourcePlayers,
	ResourceCoaches,
	ResourceFixtureStatus,
	ResourceEventTypes,
	ResourceMarkets,
	ResourceOutcomes,
	ResourceProviders,
	ResourceFixtures,
	ResourceOdds,
	ResourcePredictions,
	ResourceStandings,
	ResourceStatisticals,
	ResourceLineups,
}

// Scope selects which slice of provider data a cycle pulls.
type Scope struct {
	Leagues     []int
	Season      int
	FixtureFrom time.Time
	FixtureTo   time.Time
	MaxFixtures int
}

// Request is one provider call.
type Request struct {
	Endpoint string
	Query    map[string]string
}

func (r Request) key() string {
	keys := make([]string, 0, len(r.Query))
	for k := range r.Query {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := r.Endpoint
	for i, k := range keys {
		sep := "&"
		if i == 0 {
			sep = "?"
		}
		out += sep + k + "=" + r.Query[k]
	}
	return out
}

// dependencies carries ids discovered in wave one that scope wave two.
type dependencies struct {
	TeamIDs    []uint
	FixtureIDs []uint
}

type decodeFunc func(item jsoniter.RawMessage, req Request) ([]models.ExternalRecord, error)

type resourceSpec struct {
	resource Resource
	wave     int
	requests func(s Scope, d dependencies) []Request
	decode   decodeFunc
}

func leagueSeasonRequests(endpoint string, extra func(s Scope) map[string]string) func(Scope, dependencies) []Request {
	return func(s Scope, _ dependencies) []Request {
		out := make([]Request, 0, len(s.Leagues))
		for _, league := range s.Leagues {
			q := map[string]string{
				"league": strconv.Itoa(league),
				"season": strconv.Itoa(s.Season),
			}
			if extra != nil {
				for k, v := range extra(s) {
					q[k] = v
				}
			}
			out = append(out, Request{Endpoint: endpoint, Query: q})
		}
		return out
	}
}

func leagueByIDRequests(s Scope, _ dependencies) []Request {
	out := make([]Request, 0, len(s.Leagues))
	for _, league := range s.Leagues {
		out = append(out, Request{Endpoint: "leagues", Query: map[string]string{
			"id":     strconv.Itoa(league),
			"season": strconv.Itoa(s.Season),
		}})
	}
	return out
}

func fixtureWindow(s Scope) map[string]string {
	q := map[string]string{}
	if !s.FixtureFrom.IsZero() {
		q["from"] = s.FixtureFrom.Format("2006-01-02")
	}
	if !s.FixtureTo.IsZero() {
		q["to"] = s.FixtureTo.Format("2006-01-02")
	}
	return q
}

func staticRequest(endpoint string) func(Scope, dependencies) []Request {
	return func(Scope, dependencies) []Request {
		return []Request{{Endpoint: endpoint}}
	}
}

func perTeamRequests(endpoint string) func(Scope, dependencies) []Request {
	return func(_ Scope, d dependencies) []Request {
		out := make([]Request, 0, len(d.TeamIDs))
		for _, id := range d.TeamIDs {
			out = append(out, Request{Endpoint: endpoint, Query: map[string]string{"team": strconv.FormatUint(uint64(id), 10)}})
		}
		return out
	}
}

func perFixtureRequests(endpoint string) func(Scope, dependencies) []Request {
	return func(_ Scope, d dependencies) []Request {
		out := make([]Request, 0, len(d.FixtureIDs))
		for _, id := range d.FixtureIDs {
			out = append(out, Request{Endpoint: endpoint, Query: map[string]string{"fixture": strconv.FormatUint(uint64(id), 10)}})
		}
		return out
	}
}

// registry maps every resource to how it is fetched and decoded. Resources
// sharing an endpoint (leagues/seasons, teams/venues, fixtures/statuses,
// odds/outcomes) reuse one call per cycle.
var registry = map[Resource]resourceSpec{
	ResourceCountries:     {ResourceCountries, 1, staticRequest("countries"), decodeCountry},
	ResourceLeagues:       {ResourceLeagues, 1, leagueByIDRequests, decodeLeague},
	ResourceSeasons:       {ResourceSeasons, 1, leagueByIDRequests, decodeSeasons},
	ResourceTeams:         {ResourceTeams, 1, leagueSeasonRequests("teams", nil), decodeTeam},
	ResourceVenues:        {ResourceVenues, 1, leagueSeasonRequests("teams", nil), decodeVenue},
	ResourcePlayers:       {ResourcePlayers, 1, leagueSeasonRequests("players", nil), decodePlayer},
	ResourceFixtureStatus: {ResourceFixtureStatus, 1, leagueSeasonRequests("fixtures", fixtureWindow), decodeFixtureStatus},
	ResourceMarkets:       {ResourceMarkets, 1, staticRequest("odds/bets"), decodeMarket},
	ResourceOutcomes:      {ResourceOutcomes, 1, leagueSeasonRequests("odds", nil), decodeOutcomes},
	ResourceProviders:     {ResourceProviders, 1, staticRequest("odds/bookmakers"), decodeProvider},
	ResourceFixtures:      {ResourceFixtures, 1, leagueSeasonRequests("fixtures", fixtureWindow), decodeFixture},
	ResourceOdds:          {ResourceOdds, 1, leagueSeasonRequests("odds", nil), decodeOdds},
	ResourceStandings:     {ResourceStandings, 1, leagueSeasonRequests("standings", nil), decodeStandings},

	ResourceCoaches:      {ResourceCoaches, 2, perTeamRequests("coachs"), decodeCoach},
	ResourceEventTypes:   {ResourceEventTypes, 2, perFixtureRequests("fixtures/events"), decodeEventType},
	ResourcePredictions:  {ResourcePredictions, 2, perFixtureRequests("predictions"), decodePrediction},
	ResourceStatisticals: {ResourceStatisticals, 2, perFixtureRequests("fixtures/statistics"), decodeStatisticals},
	ResourceLineups:      {ResourceLineups, 2, perFixtureRequests("fixtures/lineups"), decodeLineups},
}

// collectDependencies extracts wave-two scope from decoded wave-one batches.
func collectDependencies(batches map[Resource][]models.ExternalRecord, maxFixtures int) dependencies {
	var d dependencies
	seenTeams := map[uint]struct{}{}
	for _, rec := range batches[ResourceTeams] {
		if t, ok := rec.(*models.Team); ok {
			if _, dup := seenTeams[t.ID]; !dup {
				seenTeams[t.ID] = struct{}{}
				d.TeamIDs = append(d.TeamIDs, t.ID)
			}
		}
	}

	type fx struct {
		id      uint
		kickoff time.Time
	}
	var fixtures []fx
	seenFixtures := map[uint]struct{}{}
	for _, rec := range batches[ResourceFixtures] {
		if f, ok := rec.(*models.Fixture); ok {
			if _, dup := seenFixtures[f.ID]; !dup {
				seenFixtures[f.ID] = struct{}{}
				fixtures = append(fixtures, fx{f.ID, f.KickoffAt})
			}
		}
	}
	sort.Slice(fixtures, func(i, j int) bool {
		if !fixtures[i].kickoff.Equal(fixtures[j].kickoff) {
			return fixtures[i].kickoff.Before(fixtures[j].kickoff)
		}
		return fixtures[i].id < fixtures[j].id
	})
	if maxFixtures > 0 && len(fixtures) > maxFixtures {
		fixtures = fixtures[:maxFixtures]
	}
	for _, f := range fixtures {
		d.FixtureIDs = append(d.FixtureIDs, f.id)
	}
	sort.Slice(d.TeamIDs, func(i, j int) bool { return d.TeamIDs[i] < d.TeamIDs[j] })
	return d
}
