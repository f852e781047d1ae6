package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ManuelReschke/OddsRaiders/app/models"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// stamped is embedded in item payloads; any item may carry the provider's
// last-modified time as "update".
type stamped struct {
	Update string `json:"update"`
}

func (s stamped) updatedAt() (*time.Time, error) {
	return parseTimestamp(s.Update)
}

func parseTimestamp(v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp %q: %w", v, err)
	}
	t = t.UTC()
	return &t, nil
}

func parseDate(v string) *time.Time {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(v))
	if err != nil {
		return nil
	}
	return &t
}

func optionalID(id uint) *uint {
	if id == 0 {
		return nil
	}
	return &id
}

func queryID(req Request, key string) (uint, error) {
	raw, ok := req.Query[key]
	if !ok {
		return 0, fmt.Errorf("request has no %s parameter", key)
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s parameter %q", key, raw)
	}
	return uint(id), nil
}

// scalarString renders a provider value that may be a number, string or null.
func scalarString(raw jsoniter.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	if strings.HasPrefix(s, `"`) {
		var out string
		if err := json.Unmarshal(raw, &out); err == nil {
			return out
		}
	}
	return s
}

func stampRecord(rec models.ExternalRecord, at *time.Time) models.ExternalRecord {
	switch r := rec.(type) {
	case *models.Country:
		r.ProviderUpdatedAt = at
	case *models.League:
		r.ProviderUpdatedAt = at
	case *models.Season:
		r.ProviderUpdatedAt = at
	case *models.Team:
		r.ProviderUpdatedAt = at
	case *models.Venue:
		r.ProviderUpdatedAt = at
	case *models.Player:
		r.ProviderUpdatedAt = at
	case *models.Coach:
		r.ProviderUpdatedAt = at
	case *models.FixtureStatus:
		r.ProviderUpdatedAt = at
	case *models.EventType:
		r.ProviderUpdatedAt = at
	case *models.Market:
		r.ProviderUpdatedAt = at
	case *models.Outcome:
		r.ProviderUpdatedAt = at
	case *models.Provider:
		r.ProviderUpdatedAt = at
	case *models.Fixture:
		r.ProviderUpdatedAt = at
	case *models.Odds:
		r.ProviderUpdatedAt = at
	case *models.Prediction:
		r.ProviderUpdatedAt = at
	case *models.Standing:
		r.ProviderUpdatedAt = at
	case *models.Statistical:
		r.ProviderUpdatedAt = at
	case *models.Lineup:
		r.ProviderUpdatedAt = at
	}
	return rec
}

func stampAll(at *time.Time, recs ...models.ExternalRecord) []models.ExternalRecord {
	for _, r := range recs {
		stampRecord(r, at)
	}
	return recs
}

// countries: {"name","code","flag"}
func decodeCountry(item jsoniter.RawMessage, _ Request) ([]models.ExternalRecord, error) {
	var p struct {
		stamped
		Name string `json:"name"`
		Code string `json:"code"`
		Flag string `json:"flag"`
	}
	if err := json.Unmarshal(item, &p); err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, fmt.Errorf("country without name")
	}
	at, err := p.updatedAt()
	if err != nil {
		return nil, err
	}
	return stampAll(at, &models.Country{Name: p.Name, Code: p.Code, FlagURL: p.Flag}), nil
}

type leagueItem struct {
	stamped
	League struct {
		ID   uint   `json:"id"`
		Name string `json:"name"`
		Type string `json:"type"`
		Logo string `json:"logo"`
	} `json:"league"`
	Country struct {
		Name string `json:"name"`
	} `json:"country"`
	Seasons []struct {
		Year    int    `json:"year"`
		Start   string `json:"start"`
		End     string `json:"end"`
		Current bool   `json:"current"`
	} `json:"seasons"`
}

func decodeLeagueItem(item jsoniter.RawMessage) (leagueItem, *time.Time, error) {
	var p leagueItem
	if err := json.Unmarshal(item, &p); err != nil {
		return p, nil, err
	}
	if p.League.ID == 0 {
		return p, nil, fmt.Errorf("league without id")
	}
	at, err := p.updatedAt()
	return p, at, err
}

func decodeLeague(item jsoniter.RawMessage, _ Request) ([]models.ExternalRecord, error) {
	p, at, err := decodeLeagueItem(item)
	if err != nil {
		return nil, err
	}
	return stampAll(at, &models.League{
		ID:          p.League.ID,
		Name:        p.League.Name,
		Type:        p.League.Type,
		LogoURL:     p.League.Logo,
		CountryName: p.Country.Name,
	}), nil
}

func decodeSeasons(item jsoniter.RawMessage, _ Request) ([]models.ExternalRecord, error) {
	p, at, err := decodeLeagueItem(item)
	if err != nil {
		return nil, err
	}
	out := make([]models.ExternalRecord, 0, len(p.Seasons))
	for _, s := range p.Seasons {
		if s.Year == 0 {
			continue
		}
		out = append(out, &models.Season{
			LeagueID:  p.League.ID,
			Year:      s.Year,
			StartDate: parseDate(s.Start),
			EndDate:   parseDate(s.End),
			Current:   s.Current,
		})
	}
	return stampAll(at, out...), nil
}

type teamItem struct {
	stamped
	Team struct {
		ID       uint   `json:"id"`
		Name     string `json:"name"`
		Code     string `json:"code"`
		Country  string `json:"country"`
		Founded  int    `json:"founded"`
		National bool   `json:"national"`
		Logo     string `json:"logo"`
	} `json:"team"`
	Venue struct {
		ID       uint   `json:"id"`
		Name     string `json:"name"`
		Address  string `json:"address"`
		City     string `json:"city"`
		Capacity int    `json:"capacity"`
		Surface  string `json:"surface"`
	} `json:"venue"`
}

func decodeTeam(item jsoniter.RawMessage, _ Request) ([]models.ExternalRecord, error) {
	var p teamItem
	if err := json.Unmarshal(item, &p); err != nil {
		return nil, err
	}
	if p.Team.ID == 0 {
		return nil, fmt.Errorf("team without id")
	}
	at, err := p.updatedAt()
	if err != nil {
		return nil, err
	}
	return stampAll(at, &models.Team{
		ID:          p.Team.ID,
		Name:        p.Team.Name,
		Code:        p.Team.Code,
		CountryName: p.Team.Country,
		Founded:     p.Team.Founded,
		National:    p.Team.National,
		LogoURL:     p.Team.Logo,
	}), nil
}

func decodeVenue(item jsoniter.RawMessage, _ Request) ([]models.ExternalRecord, error) {
	var p teamItem
	if err := json.Unmarshal(item, &p); err != nil {
		return nil, err
	}
	if p.Venue.ID == 0 {
		return nil, nil
	}
	at, err := p.updatedAt()
	if err != nil {
		return nil, err
	}
	return stampAll(at, &models.Venue{
		ID:       p.Venue.ID,
		Name:     p.Venue.Name,
		Address:  p.Venue.Address,
		City:     p.Venue.City,
		Capacity: p.Venue.Capacity,
		Surface:  p.Venue.Surface,
	}), nil
}

func decodePlayer(item jsoniter.RawMessage, _ Request) ([]models.ExternalRecord, error) {
	var p struct {
		stamped
		Player struct {
			ID          uint   `json:"id"`
			Name        string `json:"name"`
			Firstname   string `json:"firstname"`
			Lastname    string `json:"lastname"`
			Age         int    `json:"age"`
			Nationality string `json:"nationality"`
			Photo       string `json:"photo"`
		} `json:"player"`
		Statistics []struct {
			Team struct {
				ID uint `json:"id"`
			} `json:"team"`
		} `json:"statistics"`
	}
	if err := json.Unmarshal(item, &p); err != nil {
		return nil, err
	}
	if p.Player.ID == 0 {
		return nil, fmt.Errorf("player without id")
	}
	at, err := p.updatedAt()
	if err != nil {
		return nil, err
	}
	rec := &models.Player{
		ID:          p.Player.ID,
		Name:        p.Player.Name,
		Firstname:   p.Player.Firstname,
		Lastname:    p.Player.Lastname,
		Age:         p.Player.Age,
		Nationality: p.Player.Nationality,
		PhotoURL:    p.Player.Photo,
	}
	if len(p.Statistics) > 0 {
		rec.TeamID = optionalID(p.Statistics[0].Team.ID)
	}
	return stampAll(at, rec), nil
}

// coaches are requested per team; the requested team is the coach's club.
func decodeCoach(item jsoniter.RawMessage, req Request) ([]models.ExternalRecord, error) {
	var p struct {
		stamped
		ID          uint   `json:"id"`
		Name        string `json:"name"`
		Nationality string `json:"nationality"`
		Photo       string `json:"photo"`
	}
	if err := json.Unmarshal(item, &p); err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, fmt.Errorf("coach without id")
	}
	teamID, err := queryID(req, "team")
	if err != nil {
		return nil, err
	}
	at, err := p.updatedAt()
	if err != nil {
		return nil, err
	}
	return stampAll(at, &models.Coach{
		ID:          p.ID,
		Name:        p.Name,
		Nationality: p.Nationality,
		PhotoURL:    p.Photo,
		TeamID:      &teamID,
	}), nil
}

type fixtureItem struct {
	stamped
	Fixture struct {
		ID       uint   `json:"id"`
		Referee  string `json:"referee"`
		Timezone string `json:"timezone"`
		Date     string `json:"date"`
		Venue    struct {
			ID uint `json:"id"`
		} `json:"venue"`
		Status struct {
			Long    string `json:"long"`
			Short   string `json:"short"`
			Elapsed *int   `json:"elapsed"`
		} `json:"status"`
	} `json:"fixture"`
	League struct {
		ID     uint   `json:"id"`
		Season int    `json:"season"`
		Round  string `json:"round"`
	} `json:"league"`
	Teams struct {
		Home struct {
			ID uint `json:"id"`
		} `json:"home"`
		Away struct {
			ID uint `json:"id"`
		} `json:"away"`
	} `json:"teams"`
	Goals struct {
		Home *int `json:"home"`
		Away *int `json:"away"`
	} `json:"goals"`
}

func decodeFixtureStatus(item jsoniter.RawMessage, _ Request) ([]models.ExternalRecord, error) {
	var p fixtureItem
	if err := json.Unmarshal(item, &p); err != nil {
		return nil, err
	}
	if p.Fixture.Status.Short == "" {
		return nil, nil
	}
	at, err := p.updatedAt()
	if err != nil {
		return nil, err
	}
	return stampAll(at, &models.FixtureStatus{Short: p.Fixture.Status.Short, Long: p.Fixture.Status.Long}), nil
}

func decodeFixture(item jsoniter.RawMessage, _ Request) ([]models.ExternalRecord, error) {
	var p fixtureItem
	if err := json.Unmarshal(item, &p); err != nil {
		return nil, err
	}
	if p.Fixture.ID == 0 {
		return nil, fmt.Errorf("fixture without id")
	}
	kickoff, err := parseTimestamp(p.Fixture.Date)
	if err != nil {
		return nil, err
	}
	if kickoff == nil {
		return nil, fmt.Errorf("fixture %d without date", p.Fixture.ID)
	}
	at, err := p.updatedAt()
	if err != nil {
		return nil, err
	}
	tz := p.Fixture.Timezone
	if tz == "" {
		tz = "UTC"
	}
	return stampAll(at, &models.Fixture{
		ID:          p.Fixture.ID,
		Referee:     p.Fixture.Referee,
		Timezone:    tz,
		KickoffAt:   *kickoff,
		LeagueID:    p.League.ID,
		Season:      p.League.Season,
		Round:       p.League.Round,
		HomeTeamID:  p.Teams.Home.ID,
		AwayTeamID:  p.Teams.Away.ID,
		VenueID:     optionalID(p.Fixture.Venue.ID),
		StatusShort: p.Fixture.Status.Short,
		Elapsed:     p.Fixture.Status.Elapsed,
		GoalsHome:   p.Goals.Home,
		GoalsAway:   p.Goals.Away,
	}), nil
}

// events are requested per fixture; only the distinct (type, detail) pairs are kept.
func decodeEventType(item jsoniter.RawMessage, _ Request) ([]models.ExternalRecord, error) {
	var p struct {
		stamped
		Type   string `json:"type"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(item, &p); err != nil {
		return nil, err
	}
	if p.Type == "" {
		return nil, nil
	}
	at, err := p.updatedAt()
	if err != nil {
		return nil, err
	}
	return stampAll(at, &models.EventType{Type: p.Type, Detail: p.Detail}), nil
}

type namedItem struct {
	stamped
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func decodeMarket(item jsoniter.RawMessage, _ Request) ([]models.ExternalRecord, error) {
	var p namedItem
	if err := json.Unmarshal(item, &p); err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, fmt.Errorf("market without id")
	}
	at, err := p.updatedAt()
	if err != nil {
		return nil, err
	}
	return stampAll(at, &models.Market{ID: p.ID, Name: p.Name}), nil
}

func decodeProvider(item jsoniter.RawMessage, _ Request) ([]models.ExternalRecord, error) {
	var p namedItem
	if err := json.Unmarshal(item, &p); err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, fmt.Errorf("bookmaker without id")
	}
	at, err := p.updatedAt()
	if err != nil {
		return nil, err
	}
	return stampAll(at, &models.Provider{ID: p.ID, Name: p.Name}), nil
}

type oddsItem struct {
	stamped
	Fixture struct {
		ID uint `json:"id"`
	} `json:"fixture"`
	Bookmakers []struct {
		ID   uint `json:"id"`
		Bets []struct {
			ID     uint `json:"id"`
			Values []struct {
				Value string              `json:"value"`
				Odd   jsoniter.RawMessage `json:"odd"`
			} `json:"values"`
		} `json:"bets"`
	} `json:"bookmakers"`
}

func decodeOddsItem(item jsoniter.RawMessage) (oddsItem, *time.Time, error) {
	var p oddsItem
	if err := json.Unmarshal(item, &p); err != nil {
		return p, nil, err
	}
	if p.Fixture.ID == 0 {
		return p, nil, fmt.Errorf("odds without fixture id")
	}
	at, err := p.updatedAt()
	return p, at, err
}

// outcomes are the distinct (market, value) pairs quoted in an odds item.
func decodeOutcomes(item jsoniter.RawMessage, _ Request) ([]models.ExternalRecord, error) {
	p, at, err := decodeOddsItem(item)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	var out []models.ExternalRecord
	for _, bm := range p.Bookmakers {
		for _, bet := range bm.Bets {
			for _, v := range bet.Values {
				if bet.ID == 0 || v.Value == "" {
					continue
				}
				k := strconv.FormatUint(uint64(bet.ID), 10) + "|" + v.Value
				if _, dup := seen[k]; dup {
					continue
				}
				seen[k] = struct{}{}
				out = append(out, &models.Outcome{MarketID: bet.ID, Value: v.Value})
			}
		}
	}
	return stampAll(at, out...), nil
}

func decodeOdds(item jsoniter.RawMessage, _ Request) ([]models.ExternalRecord, error) {
	p, at, err := decodeOddsItem(item)
	if err != nil {
		return nil, err
	}
	var out []models.ExternalRecord
	for _, bm := range p.Bookmakers {
		for _, bet := range bm.Bets {
			for _, v := range bet.Values {
				odd, err := decimal.NewFromString(scalarString(v.Odd))
				if err != nil {
					return nil, fmt.Errorf("fixture %d bookmaker %d bet %d value %q: invalid odd: %w",
						p.Fixture.ID, bm.ID, bet.ID, v.Value, err)
				}
				out = append(out, &models.Odds{
					FixtureID:    p.Fixture.ID,
					ProviderID:   bm.ID,
					MarketID:     bet.ID,
					OutcomeValue: v.Value,
					Odd:          odd,
				})
			}
		}
	}
	return stampAll(at, out...), nil
}

// predictions are requested per fixture.
func decodePrediction(item jsoniter.RawMessage, req Request) ([]models.ExternalRecord, error) {
	var p struct {
		stamped
		Predictions struct {
			Winner struct {
				ID      uint   `json:"id"`
				Comment string `json:"comment"`
			} `json:"winner"`
			WinOrDraw bool   `json:"win_or_draw"`
			UnderOver string `json:"under_over"`
			Goals     struct {
				Home string `json:"home"`
				Away string `json:"away"`
			} `json:"goals"`
			Advice  string `json:"advice"`
			Percent struct {
				Home string `json:"home"`
				Draw string `json:"draw"`
				Away string `json:"away"`
			} `json:"percent"`
		} `json:"predictions"`
		Comparison jsoniter.RawMessage `json:"comparison"`
	}
	if err := json.Unmarshal(item, &p); err != nil {
		return nil, err
	}
	fixtureID, err := queryID(req, "fixture")
	if err != nil {
		return nil, err
	}
	at, err := p.updatedAt()
	if err != nil {
		return nil, err
	}
	comparison := datatypes.JSON("{}")
	if len(p.Comparison) > 0 && string(p.Comparison) != "null" {
		comparison = datatypes.JSON(p.Comparison)
	}
	pr := p.Predictions
	return stampAll(at, &models.Prediction{
		FixtureID:     fixtureID,
		WinnerTeamID:  optionalID(pr.Winner.ID),
		WinnerComment: pr.Winner.Comment,
		WinOrDraw:     pr.WinOrDraw,
		UnderOver:     pr.UnderOver,
		GoalsHome:     pr.Goals.Home,
		GoalsAway:     pr.Goals.Away,
		Advice:        pr.Advice,
		PercentHome:   pr.Percent.Home,
		PercentDraw:   pr.Percent.Draw,
		PercentAway:   pr.Percent.Away,
		Comparison:    comparison,
	}), nil
}

// standings nest one table per group: league.standings[group][row].
func decodeStandings(item jsoniter.RawMessage, _ Request) ([]models.ExternalRecord, error) {
	type row struct {
		Rank int `json:"rank"`
		Team struct {
			ID uint `json:"id"`
		} `json:"team"`
		Points      int    `json:"points"`
		GoalsDiff   int    `json:"goalsDiff"`
		Group       string `json:"group"`
		Form        string `json:"form"`
		Description string `json:"description"`
		All         struct {
			Played int `json:"played"`
			Win    int `json:"win"`
			Draw   int `json:"draw"`
			Lose   int `json:"lose"`
			Goals  struct {
				For     int `json:"for"`
				Against int `json:"against"`
			} `json:"goals"`
		} `json:"all"`
		Update string `json:"update"`
	}
	var p struct {
		League struct {
			ID        uint    `json:"id"`
			Season    int     `json:"season"`
			Standings [][]row `json:"standings"`
		} `json:"league"`
	}
	if err := json.Unmarshal(item, &p); err != nil {
		return nil, err
	}
	if p.League.ID == 0 {
		return nil, fmt.Errorf("standings without league id")
	}
	var out []models.ExternalRecord
	for _, group := range p.League.Standings {
		for _, r := range group {
			at, err := parseTimestamp(r.Update)
			if err != nil {
				return nil, err
			}
			out = append(out, stampRecord(&models.Standing{
				LeagueID:     p.League.ID,
				Season:       p.League.Season,
				TeamID:       r.Team.ID,
				Rank:         r.Rank,
				Points:       r.Points,
				GoalsDiff:    r.GoalsDiff,
				Group:        r.Group,
				Form:         r.Form,
				Description:  r.Description,
				Played:       r.All.Played,
				Win:          r.All.Win,
				Draw:         r.All.Draw,
				Lose:         r.All.Lose,
				GoalsFor:     r.All.Goals.For,
				GoalsAgainst: r.All.Goals.Against,
			}, at))
		}
	}
	return out, nil
}

// statistics are requested per fixture: one item per team.
func decodeStatisticals(item jsoniter.RawMessage, req Request) ([]models.ExternalRecord, error) {
	var p struct {
		stamped
		Team struct {
			ID uint `json:"id"`
		} `json:"team"`
		Statistics []struct {
			Type  string              `json:"type"`
			Value jsoniter.RawMessage `json:"value"`
		} `json:"statistics"`
	}
	if err := json.Unmarshal(item, &p); err != nil {
		return nil, err
	}
	fixtureID, err := queryID(req, "fixture")
	if err != nil {
		return nil, err
	}
	at, err := p.updatedAt()
	if err != nil {
		return nil, err
	}
	out := make([]models.ExternalRecord, 0, len(p.Statistics))
	for _, s := range p.Statistics {
		if s.Type == "" {
			continue
		}
		out = append(out, &models.Statistical{
			FixtureID: fixtureID,
			TeamID:    p.Team.ID,
			Type:      s.Type,
			Value:     scalarString(s.Value),
		})
	}
	return stampAll(at, out...), nil
}

// lineups are requested per fixture: one item per team with starters and substitutes.
func decodeLineups(item jsoniter.RawMessage, req Request) ([]models.ExternalRecord, error) {
	type slot struct {
		Player struct {
			ID     uint   `json:"id"`
			Number int    `json:"number"`
			Pos    string `json:"pos"`
			Grid   string `json:"grid"`
		} `json:"player"`
	}
	var p struct {
		stamped
		Team struct {
			ID uint `json:"id"`
		} `json:"team"`
		Formation   string `json:"formation"`
		StartXI     []slot `json:"startXI"`
		Substitutes []slot `json:"substitutes"`
	}
	if err := json.Unmarshal(item, &p); err != nil {
		return nil, err
	}
	fixtureID, err := queryID(req, "fixture")
	if err != nil {
		return nil, err
	}
	at, err := p.updatedAt()
	if err != nil {
		return nil, err
	}
	var out []models.ExternalRecord
	add := func(slots []slot, starter bool) {
		for _, s := range slots {
			if s.Player.ID == 0 {
				continue
			}
			out = append(out, &models.Lineup{
				FixtureID: fixtureID,
				TeamID:    p.Team.ID,
				PlayerID:  s.Player.ID,
				Number:    s.Player.Number,
				Position:  s.Player.Pos,
				Grid:      s.Player.Grid,
				Formation: p.Formation,
				Starter:   starter,
			})
		}
	}
	add(p.StartXI, true)
	add(p.Substitutes, false)
	return stampAll(at, out...), nil
}
