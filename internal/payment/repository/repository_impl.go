package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/creditdesk/internal/payment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payments (id, user_id, amount_tnd, month, note, paid_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.UserID,
		payment.AmountTnd,
		payment.Month,
		payment.Note,
		payment.PaidAt,
		payment.CreatedAt,
	).Error
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]domain.Payment, error) {
	var payments []domain.Payment
	stmt := db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("user_id = ?", userID).
		Order("paid_at desc, id desc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if err := stmt.Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repo) LatestByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*domain.Payment, error) {
	payments, err := r.ListByUser(ctx, db, userID, 1)
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return nil, nil
	}
	return &payments[0], nil
}

func (r *repo) Recent(ctx context.Context, db *gorm.DB, limit int) ([]domain.PaymentView, error) {
	var views []domain.PaymentView
	stmt := db.WithContext(ctx).
		Table("payments AS p").
		Select(`p.id, p.user_id, p.amount_tnd, p.month, p.note, p.paid_at, p.created_at,
			COALESCE(u.full_name, '') AS user_name, COALESCE(u.email, '') AS user_email`).
		Joins("LEFT JOIN users u ON u.id = p.user_id").
		Order("p.paid_at desc, p.id desc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if err := stmt.Scan(&views).Error; err != nil {
		return nil, err
	}
	return views, nil
}

func (r *repo) RevenueByMonth(ctx context.Context, db *gorm.DB) ([]domain.MonthlyRevenue, error) {
	var rows []struct {
		Month string
		Total decimal.Decimal
	}
	err := db.WithContext(ctx).Raw(
		`SELECT month, SUM(amount_tnd) AS total
		 FROM payments
		 GROUP BY month
		 ORDER BY month ASC`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.MonthlyRevenue, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.MonthlyRevenue{Month: row.Month, Total: domain.NewAmount(row.Total)})
	}
	return out, nil
}

func (r *repo) Sum(ctx context.Context, db *gorm.DB) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount_tnd), 0) AS total FROM payments`,
	).Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}
