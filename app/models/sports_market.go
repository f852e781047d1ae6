package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Market is a bet type ("Match Winner", "Goals Over/Under", ...).
type Market struct {
	ID   uint   `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name string `gorm:"type:varchar(150);not null" json:"name"`
	SyncStamp
}

func (Market) TableName() string             { return TableMarkets }
func (m *Market) NaturalKey() map[string]any { return map[string]any{"id": m.ID} }
func (m *Market) References() []ExternalRef  { return nil }

// Outcome is one selectable value of a market ("Home", "Over 2.5", ...).
type Outcome struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	MarketID uint   `gorm:"not null;index:ux_outcomes_market_value,unique,priority:1" json:"market_id"`
	Value    string `gorm:"type:varchar(100);not null;index:ux_outcomes_market_value,unique,priority:2" json:"value"`
	SyncStamp
}

func (Outcome) TableName() string { return TableOutcomes }
func (o *Outcome) NaturalKey() map[string]any {
	return map[string]any{"market_id": o.MarketID, "value": o.Value}
}
func (o *Outcome) References() []ExternalRef { return refByID(TableMarkets, o.MarketID) }

// Provider is a bookmaker offering odds.
type Provider struct {
	ID   uint   `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name string `gorm:"type:varchar(150);not null" json:"name"`
	SyncStamp
}

func (Provider) TableName() string             { return TableProviders }
func (p *Provider) NaturalKey() map[string]any { return map[string]any{"id": p.ID} }
func (p *Provider) References() []ExternalRef  { return nil }

type Odds struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	FixtureID    uint            `gorm:"not null;index:ux_odds_fixture_provider_market_outcome,unique,priority:1" json:"fixture_id"`
	ProviderID   uint            `gorm:"not null;index:ux_odds_fixture_provider_market_outcome,unique,priority:2" json:"provider_id"`
	MarketID     uint            `gorm:"not null;index:ux_odds_fixture_provider_market_outcome,unique,priority:3" json:"market_id"`
	OutcomeValue string          `gorm:"type:varchar(100);not null;index:ux_odds_fixture_provider_market_outcome,unique,priority:4" json:"outcome_value"`
	Odd          decimal.Decimal `gorm:"type:decimal(10,3);not null" json:"odd"`
	SyncStamp
}

func (Odds) TableName() string { return TableOdds }
func (o *Odds) NaturalKey() map[string]any {
	return map[string]any{
		"fixture_id":    o.FixtureID,
		"provider_id":   o.ProviderID,
		"market_id":     o.MarketID,
		"outcome_value": o.OutcomeValue,
	}
}
func (o *Odds) References() []ExternalRef {
	refs := joinRefs(
		refByID(TableFixtures, o.FixtureID),
		refByID(TableProviders, o.ProviderID),
		refByID(TableMarkets, o.MarketID),
	)
	if o.MarketID != 0 && o.OutcomeValue != "" {
		refs = append(refs, ExternalRef{Table: TableOutcomes, Key: map[string]any{"market_id": o.MarketID, "value": o.OutcomeValue}})
	}
	return refs
}

type Prediction struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	FixtureID     uint           `gorm:"not null;uniqueIndex" json:"fixture_id"`
	WinnerTeamID  *uint          `gorm:"index" json:"winner_team_id,omitempty"`
	WinnerComment string         `gorm:"type:varchar(150);default:''" json:"winner_comment"`
	WinOrDraw     bool           `gorm:"default:false" json:"win_or_draw"`
	UnderOver     string         `gorm:"type:varchar(10);default:''" json:"under_over"`
	GoalsHome     string         `gorm:"type:varchar(10);default:''" json:"goals_home"`
	GoalsAway     string         `gorm:"type:varchar(10);default:''" json:"goals_away"`
	Advice        string         `gorm:"type:varchar(255);default:''" json:"advice"`
	PercentHome   string         `gorm:"type:varchar(5);default:''" json:"percent_home"`
	PercentDraw   string         `gorm:"type:varchar(5);default:''" json:"percent_draw"`
	PercentAway   string         `gorm:"type:varchar(5);default:''" json:"percent_away"`
	Comparison    datatypes.JSON `gorm:"type:json" json:"comparison"`
	SyncStamp
}

func (Prediction) TableName() string             { return TablePredictions }
func (p *Prediction) NaturalKey() map[string]any { return map[string]any{"fixture_id": p.FixtureID} }
func (p *Prediction) References() []ExternalRef {
	return joinRefs(refByID(TableFixtures, p.FixtureID), refByOptionalID(TableTeams, p.WinnerTeamID))
}
