package models

type Team struct {
	ID          uint   `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name        string `gorm:"type:varchar(150);not null" json:"name"`
	Code        string `gorm:"type:varchar(10);default:''" json:"code"`
	CountryName string `gorm:"type:varchar(100);default:'';index" json:"country_name"`
	Founded     int    `gorm:"default:0" json:"founded"`
	National    bool   `gorm:"default:false" json:"national"`
	LogoURL     string `gorm:"type:varchar(255);default:''" json:"logo_url"`
	SyncStamp
}

func (Team) TableName() string             { return TableTeams }
func (t *Team) NaturalKey() map[string]any { return map[string]any{"id": t.ID} }
func (t *Team) References() []ExternalRef {
	return refByName(TableCountries, "name", t.CountryName)
}

type Player struct {
	ID          uint   `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name        string `gorm:"type:varchar(150);not null" json:"name"`
	Firstname   string `gorm:"type:varchar(100);default:''" json:"firstname"`
	Lastname    string `gorm:"type:varchar(100);default:''" json:"lastname"`
	Age         int    `gorm:"default:0" json:"age"`
	Nationality string `gorm:"type:varchar(100);default:''" json:"nationality"`
	PhotoURL    string `gorm:"type:varchar(255);default:''" json:"photo_url"`
	TeamID      *uint  `gorm:"index" json:"team_id,omitempty"`
	SyncStamp
}

func (Player) TableName() string             { return TablePlayers }
func (p *Player) NaturalKey() map[string]any { return map[string]any{"id": p.ID} }
func (p *Player) References() []ExternalRef  { return refByOptionalID(TableTeams, p.TeamID) }

type Coach struct {
	ID          uint   `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name        string `gorm:"type:varchar(150);not null" json:"name"`
	Nationality string `gorm:"type:varchar(100);default:''" json:"nationality"`
	PhotoURL    string `gorm:"type:varchar(255);default:''" json:"photo_url"`
	TeamID      *uint  `gorm:"index" json:"team_id,omitempty"`
	SyncStamp
}

func (Coach) TableName() string             { return TableCoaches }
func (c *Coach) NaturalKey() map[string]any { return map[string]any{"id": c.ID} }
func (c *Coach) References() []ExternalRef  { return refByOptionalID(TableTeams, c.TeamID) }
