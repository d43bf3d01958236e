package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/creditdesk/internal/user/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO users (id, external_id, email, full_name, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.ExternalID,
		user.Email,
		user.FullName,
		user.Role,
		user.CreatedAt,
		user.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Raw(
		`SELECT id, external_id, email, full_name, role, created_at, updated_at
		 FROM users WHERE id = ?`,
		id,
	).Scan(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}

func (r *repo) FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Raw(
		`SELECT id, external_id, email, full_name, role, created_at, updated_at
		 FROM users WHERE external_id = ?`,
		externalID,
	).Scan(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}

// LockByID reads the user row with SELECT ... FOR UPDATE. Dialects without row
// locks (sqlite) drop the clause and rely on their single writer.
func (r *repo) LockByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error) {
	var users []domain.User
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("id = ?", id).
		Limit(1).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.User, error) {
	var users []domain.User
	stmt := db.WithContext(ctx).Model(&domain.User{})
	if filter.Role != "" {
		stmt = stmt.Where("role = ?", filter.Role)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}
	err := stmt.
		Order("created_at desc, id desc").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repo) Count(ctx context.Context, db *gorm.DB, role domain.Role) (int64, error) {
	var count int64
	stmt := db.WithContext(ctx).Model(&domain.User{})
	if role != "" {
		stmt = stmt.Where("role = ?", role)
	}
	if err := stmt.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) UpdateProfile(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Exec(
		`UPDATE users
		 SET email = ?, full_name = ?, updated_at = ?
		 WHERE id = ?`,
		user.Email,
		user.FullName,
		user.UpdatedAt,
		user.ID,
	).Error
}

// Upsert inserts the user or, when external_id already exists, refreshes the
// directory-owned columns. The stored row is returned, so an existing user keeps
// its original id and created_at.
func (r *repo) Upsert(ctx context.Context, db *gorm.DB, user *domain.User) (*domain.User, error) {
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "full_name", "role", "updated_at"}),
		}).
		Create(user).Error
	if err != nil {
		return nil, err
	}
	return r.FindByExternalID(ctx, db, user.ExternalID)
}

// DeleteWithDependents removes the user and every row that references it.
// Ledger entries the user authored as an admin stay; their admin name reads empty.
func (r *repo) DeleteWithDependents(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	statements := []string{
		`DELETE FROM payments WHERE user_id = ?`,
		`DELETE FROM credit_ledger_entries WHERE user_id = ?`,
		`DELETE FROM subscriptions WHERE user_id = ?`,
		`DELETE FROM users WHERE id = ?`,
	}
	for _, statement := range statements {
		if err := db.WithContext(ctx).Exec(statement, id).Error; err != nil {
			return err
		}
	}
	return nil
}
