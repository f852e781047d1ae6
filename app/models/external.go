package models

import "time"

// Table names of the external sports entities, also used in ExternalRef.
const (
	TableCountries     = "countries"
	TableLeagues       = "leagues"
	TableSeasons       = "seasons"
	TableTeams         = "teams"
	TableVenues        = "venues"
	TablePlayers       = "players"
	TableCoaches       = "coaches"
	TableFixtureStatus = "fixture_statuses"
	TableEventTypes    = "event_types"
	TableMarkets       = "markets"
	TableOutcomes      = "outcomes"
	TableProviders     = "providers"
	TableFixtures      = "fixtures"
	TableOdds          = "odds"
	TablePredictions   = "predictions"
	TableStandings     = "standings"
	TableStatisticals  = "statisticals"
	TableLineups       = "lineups"
)

// ExternalRecord is a row owned by the ingestion path. NaturalKey is the
// provider identity as column/value pairs; References lists the rows that
// must already exist before this one may be written.
type ExternalRecord interface {
	TableName() string
	NaturalKey() map[string]any
	References() []ExternalRef
	LastModified() *time.Time
}

// ExternalRef points at another external row by its natural key.
type ExternalRef struct {
	Table string
	Key   map[string]any
}

// SyncStamp is embedded by every external entity.
type SyncStamp struct {
	ProviderUpdatedAt *time.Time `gorm:"type:timestamp;default:null" json:"provider_updated_at,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s SyncStamp) LastModified() *time.Time { return s.ProviderUpdatedAt }

func refByID(table string, id uint) []ExternalRef {
	if id == 0 {
		return nil
	}
	return []ExternalRef{{Table: table, Key: map[string]any{"id": id}}}
}

func refByOptionalID(table string, id *uint) []ExternalRef {
	if id == nil {
		return nil
	}
	return refByID(table, *id)
}

func refByName(table, column, value string) []ExternalRef {
	if value == "" {
		return nil
	}
	return []ExternalRef{{Table: table, Key: map[string]any{column: value}}}
}

func refSeason(leagueID uint, year int) []ExternalRef {
	if leagueID == 0 || year == 0 {
		return nil
	}
	return []ExternalRef{{Table: TableSeasons, Key: map[string]any{"league_id": leagueID, "year": year}}}
}

func joinRefs(groups ...[]ExternalRef) []ExternalRef {
	var out []ExternalRef
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
