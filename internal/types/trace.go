package types

import "gorm.io/datatypes"

// Trace mirrors one remote top-level execution (one chat turn's worth of
// agent activity). Chapter is the first "chapter_N" tag, denormalized so
// the query layer never has to scan tags_json.
type Trace struct {
	ID           string         `gorm:"primaryKey" json:"id"`
	SessionID    *string        `gorm:"column:session_id;index" json:"session_id"`
	UserID       *string        `gorm:"column:user_id" json:"user_id"`
	Name         *string        `gorm:"column:name" json:"name"`
	Timestamp    string         `gorm:"column:timestamp;not null;index" json:"timestamp"`
	TotalCost    float64        `gorm:"column:total_cost;default:0" json:"total_cost"`
	Latency      float64        `gorm:"column:latency;default:0" json:"latency"`
	MetadataJSON datatypes.JSON `gorm:"column:metadata_json" json:"metadata_json"`
	TagsJSON     datatypes.JSON `gorm:"column:tags_json" json:"tags_json"`
	Chapter      *string        `gorm:"column:chapter;index" json:"chapter"`
	MortalName   *string        `gorm:"column:mortal_name" json:"mortal_name"`
	MatchName    *string        `gorm:"column:match_name" json:"match_name"`
	SyncedAt     string         `gorm:"column:synced_at" json:"synced_at"`
}

func (Trace) TableName() string { return "traces" }
