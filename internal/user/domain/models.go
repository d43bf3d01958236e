package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User is the local projection of a directory account.
type User struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	ExternalID string       `gorm:"column:external_id;not null;uniqueIndex" json:"external_id"`
	Email      string       `gorm:"not null" json:"email"`
	FullName   string       `gorm:"column:full_name;not null" json:"full_name"`
	Role       Role         `gorm:"type:varchar(16);not null;default:USER" json:"role"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "users" }

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UpsertInput carries the directory view of an account.
type UpsertInput struct {
	ExternalID string
	Email      string
	FullName   string
	Role       Role
}
