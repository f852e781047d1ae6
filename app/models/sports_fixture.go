package models

import "time"

// FixtureStatus is keyed by the provider's short code ("NS", "FT", ...).
type FixtureStatus struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Short string `gorm:"type:varchar(10);not null;uniqueIndex" json:"short"`
	Long  string `gorm:"type:varchar(100);default:''" json:"long"`
	SyncStamp
}

func (FixtureStatus) TableName() string             { return TableFixtureStatus }
func (s *FixtureStatus) NaturalKey() map[string]any { return map[string]any{"short": s.Short} }
func (s *FixtureStatus) References() []ExternalRef  { return nil }

// EventType is a distinct (type, detail) pair seen in fixture events.
type EventType struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Type   string `gorm:"type:varchar(50);not null;index:ux_event_types_type_detail,unique,priority:1" json:"type"`
	Detail string `gorm:"type:varchar(100);not null;default:'';index:ux_event_types_type_detail,unique,priority:2" json:"detail"`
	SyncStamp
}

func (EventType) TableName() string { return TableEventTypes }
func (e *EventType) NaturalKey() map[string]any {
	return map[string]any{"type": e.Type, "detail": e.Detail}
}
func (e *EventType) References() []ExternalRef { return nil }

type Fixture struct {
	ID          uint      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Referee     string    `gorm:"type:varchar(150);default:''" json:"referee"`
	Timezone    string    `gorm:"type:varchar(50);default:'UTC'" json:"timezone"`
	KickoffAt   time.Time `gorm:"type:timestamp;not null;index" json:"kickoff_at"`
	LeagueID    uint      `gorm:"not null;index:idx_fixtures_league_season,priority:1" json:"league_id"`
	Season      int       `gorm:"not null;index:idx_fixtures_league_season,priority:2" json:"season"`
	Round       string    `gorm:"type:varchar(100);default:''" json:"round"`
	HomeTeamID  uint      `gorm:"not null;index" json:"home_team_id"`
	AwayTeamID  uint      `gorm:"not null;index" json:"away_team_id"`
	VenueID     *uint     `gorm:"index" json:"venue_id,omitempty"`
	StatusShort string    `gorm:"type:varchar(10);default:''" json:"status_short"`
	Elapsed     *int      `json:"elapsed,omitempty"`
	GoalsHome   *int      `json:"goals_home,omitempty"`
	GoalsAway   *int      `json:"goals_away,omitempty"`
	SyncStamp
}

func (Fixture) TableName() string             { return TableFixtures }
func (f *Fixture) NaturalKey() map[string]any { return map[string]any{"id": f.ID} }
func (f *Fixture) References() []ExternalRef {
	return joinRefs(
		refByID(TableLeagues, f.LeagueID),
		refSeason(f.LeagueID, f.Season),
		refByID(TableTeams, f.HomeTeamID),
		refByID(TableTeams, f.AwayTeamID),
		refByOptionalID(TableVenues, f.VenueID),
		refByName(TableFixtureStatus, "short", f.StatusShort),
	)
}

// Statistical is one team-level statistic of a fixture ("Ball Possession", ...).
type Statistical struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	FixtureID uint   `gorm:"not null;index:ux_statisticals_fixture_team_type,unique,priority:1" json:"fixture_id"`
	TeamID    uint   `gorm:"not null;index:ux_statisticals_fixture_team_type,unique,priority:2" json:"team_id"`
	Type      string `gorm:"type:varchar(100);not null;index:ux_statisticals_fixture_team_type,unique,priority:3" json:"type"`
	Value     string `gorm:"type:varchar(50);default:''" json:"value"`
	SyncStamp
}

func (Statistical) TableName() string { return TableStatisticals }
func (s *Statistical) NaturalKey() map[string]any {
	return map[string]any{"fixture_id": s.FixtureID, "team_id": s.TeamID, "type": s.Type}
}
func (s *Statistical) References() []ExternalRef {
	return joinRefs(refByID(TableFixtures, s.FixtureID), refByID(TableTeams, s.TeamID))
}

// Lineup is one player's slot in a team sheet.
type Lineup struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	FixtureID uint   `gorm:"not null;index:ux_lineups_fixture_team_player,unique,priority:1" json:"fixture_id"`
	TeamID    uint   `gorm:"not null;index:ux_lineups_fixture_team_player,unique,priority:2" json:"team_id"`
	PlayerID  uint   `gorm:"not null;index:ux_lineups_fixture_team_player,unique,priority:3" json:"player_id"`
	Number    int    `gorm:"default:0" json:"number"`
	Position  string `gorm:"type:varchar(5);default:''" json:"position"`
	Grid      string `gorm:"type:varchar(10);default:''" json:"grid"`
	Formation string `gorm:"type:varchar(20);default:''" json:"formation"`
	Starter   bool   `gorm:"default:false" json:"starter"`
	SyncStamp
}

func (Lineup) TableName() string { return TableLineups }
func (l *Lineup) NaturalKey() map[string]any {
	return map[string]any{"fixture_id": l.FixtureID, "team_id": l.TeamID, "player_id": l.PlayerID}
}
func (l *Lineup) References() []ExternalRef {
	return joinRefs(
		refByID(TableFixtures, l.FixtureID),
		refByID(TableTeams, l.TeamID),
		refByID(TablePlayers, l.PlayerID),
	)
}
