package models

import "time"

// Country has no provider id; the name is its natural key.
type Country struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Name    string `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
	Code    string `gorm:"type:varchar(10);default:''" json:"code"`
	FlagURL string `gorm:"type:varchar(255);default:''" json:"flag_url"`
	SyncStamp
}

func (Country) TableName() string             { return TableCountries }
func (c *Country) NaturalKey() map[string]any { return map[string]any{"name": c.Name} }
func (c *Country) References() []ExternalRef  { return nil }

type League struct {
	ID          uint   `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name        string `gorm:"type:varchar(150);not null" json:"name"`
	Type        string `gorm:"type:varchar(20);default:''" json:"type"`
	LogoURL     string `gorm:"type:varchar(255);default:''" json:"logo_url"`
	CountryName string `gorm:"type:varchar(100);default:'';index" json:"country_name"`
	SyncStamp
}

func (League) TableName() string             { return TableLeagues }
func (l *League) NaturalKey() map[string]any { return map[string]any{"id": l.ID} }
func (l *League) References() []ExternalRef {
	return refByName(TableCountries, "name", l.CountryName)
}

type Season struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	LeagueID  uint       `gorm:"not null;index:ux_seasons_league_year,unique,priority:1" json:"league_id"`
	Year      int        `gorm:"not null;index:ux_seasons_league_year,unique,priority:2" json:"year"`
	StartDate *time.Time `gorm:"type:date;default:null" json:"start_date,omitempty"`
	EndDate   *time.Time `gorm:"type:date;default:null" json:"end_date,omitempty"`
	Current   bool       `gorm:"default:false" json:"current"`
	SyncStamp
}

func (Season) TableName() string { return TableSeasons }
func (s *Season) NaturalKey() map[string]any {
	return map[string]any{"league_id": s.LeagueID, "year": s.Year}
}
func (s *Season) References() []ExternalRef { return refByID(TableLeagues, s.LeagueID) }

type Venue struct {
	ID       uint   `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name     string `gorm:"type:varchar(150);not null" json:"name"`
	Address  string `gorm:"type:varchar(255);default:''" json:"address"`
	City     string `gorm:"type:varchar(100);default:''" json:"city"`
	Capacity int    `gorm:"default:0" json:"capacity"`
	Surface  string `gorm:"type:varchar(50);default:''" json:"surface"`
	SyncStamp
}

func (Venue) TableName() string             { return TableVenues }
func (v *Venue) NaturalKey() map[string]any { return map[string]any{"id": v.ID} }
func (v *Venue) References() []ExternalRef  { return nil }

// Standing is one team's row in a league table.
type Standing struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	LeagueID     uint   `gorm:"not null;index:ux_standings_league_season_team,unique,priority:1" json:"league_id"`
	Season       int    `gorm:"not null;index:ux_standings_league_season_team,unique,priority:2" json:"season"`
	TeamID       uint   `gorm:"not null;index:ux_standings_league_season_team,unique,priority:3" json:"team_id"`
	Rank         int    `gorm:"not null;default:0" json:"rank"`
	Points       int    `gorm:"not null;default:0" json:"points"`
	GoalsDiff    int    `gorm:"not null;default:0" json:"goals_diff"`
	Group        string `gorm:"column:group_name;type:varchar(100);default:''" json:"group"`
	Form         string `gorm:"type:varchar(20);default:''" json:"form"`
	Description  string `gorm:"type:varchar(255);default:''" json:"description"`
	Played       int    `gorm:"not null;default:0" json:"played"`
	Win          int    `gorm:"not null;default:0" json:"win"`
	Draw         int    `gorm:"not null;default:0" json:"draw"`
	Lose         int    `gorm:"not null;default:0" json:"lose"`
	GoalsFor     int    `gorm:"not null;default:0" json:"goals_for"`
	GoalsAgainst int    `gorm:"not null;default:0" json:"goals_against"`
	SyncStamp
}

func (Standing) TableName() string { return TableStandings }
func (s *Standing) NaturalKey() map[string]any {
	return map[string]any{"league_id": s.LeagueID, "season": s.Season, "team_id": s.TeamID}
}
func (s *Standing) References() []ExternalRef {
	return joinRefs(
		refByID(TableLeagues, s.LeagueID),
		refSeason(s.LeagueID, s.Season),
		refByID(TableTeams, s.TeamID),
	)
}
