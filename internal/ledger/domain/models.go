package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Entry is one immutable credit movement. Balance is always derived from the
// sum of entries and never stored.
type Entry struct {
	ID        snowflake.ID  `gorm:"primaryKey" json:"id"`
	UserID    snowflake.ID  `gorm:"column:user_id;not null;index" json:"user_id"`
	Delta     int64         `gorm:"not null" json:"delta"`
	Note      *string       `json:"note,omitempty"`
	AdminID   *snowflake.ID `gorm:"column:admin_id" json:"admin_id,omitempty"`
	CreatedAt time.Time     `gorm:"not null" json:"created_at"`
}

func (Entry) TableName() string {
	return "credit_ledger_entries"
}

// EntryView is an entry joined with the display name of the admin who made it.
type EntryView struct {
	Entry
	AdminName string `json:"admin_name"`
}

// Source labels why an entry was appended. It feeds metrics only.
type Source string

const (
	SourceAdjustment   Source = "adjustment"
	SourceActivation   Source = "activation"
	SourceInitialGrant Source = "initial_grant"
)

const (
	NoteActivationGrant = "Initial credit allocation on activation"
	NoteInitialGrant    = "Initial credit allocation"
)
