package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/creditdesk/internal/ledger/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.Entry) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO credit_ledger_entries (id, user_id, delta, note, admin_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.UserID,
		entry.Delta,
		entry.Note,
		entry.AdminID,
		entry.CreatedAt,
	).Error
}

func (r *repo) SumByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, error) {
	var row struct {
		Total int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(delta), 0) AS total
		 FROM credit_ledger_entries WHERE user_id = ?`,
		userID,
	).Scan(&row).Error
	if err != nil {
		return 0, err
	}
	return row.Total, nil
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]domain.EntryView, error) {
	stmt := db.WithContext(ctx).
		Table("credit_ledger_entries AS e").
		Select("e.id, e.user_id, e.delta, e.note, e.admin_id, e.created_at, COALESCE(a.full_name, '') AS admin_name").
		Joins("LEFT JOIN users AS a ON a.id = e.admin_id").
		Where("e.user_id = ?", userID).
		Order("e.created_at desc, e.id desc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}

	var entries []domain.EntryView
	if err := stmt.Scan(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) SumPositive(ctx context.Context, db *gorm.DB) (int64, error) {
	var row struct {
		Total int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(delta), 0) AS total
		 FROM credit_ledger_entries WHERE delta > 0`,
	).Scan(&row).Error
	if err != nil {
		return 0, err
	}
	return row.Total, nil
}
