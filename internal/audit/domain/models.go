package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ActorType string

const (
	ActorTypeAdmin     ActorType = "admin"
	ActorTypeUser      ActorType = "user"
	ActorTypeDirectory ActorType = "directory"
	ActorTypeSystem    ActorType = "system"
)

const (
	ActionUserCreate           = "user.create"
	ActionUserUpdate           = "user.update"
	ActionSubscriptionStatus   = "subscription.status_overwrite"
	ActionSubscriptionActivate = "subscription.activate"
	ActionCreditAdjust         = "credit.adjust"
	ActionPaymentRecord        = "payment.record"
	ActionDirectorySync        = "directory.sync"
	ActionDirectoryUserDeleted = "directory.user_deleted"
)

const (
	TargetUser         = "user"
	TargetSubscription = "subscription"
	TargetLedgerEntry  = "credit_ledger_entry"
	TargetPayment      = "payment"
	TargetDirectory    = "directory"
)

// AuditLog records one administrative action. Rows are never updated.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	ActorType  string            `gorm:"type:varchar(32);not null" json:"actor_type"`
	ActorID    *string           `json:"actor_id,omitempty"`
	Action     string            `gorm:"type:varchar(64);not null;index" json:"action"`
	TargetType string            `gorm:"type:varchar(64);not null" json:"target_type"`
	TargetID   *string           `json:"target_id,omitempty"`
	Metadata   datatypes.JSONMap `gorm:"not null" json:"metadata"`
	CreatedAt  time.Time         `gorm:"not null;index" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }
