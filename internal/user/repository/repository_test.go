package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/smallbiznis/creditdesk/internal/testutil"
	"github.com/smallbiznis/creditdesk/internal/user/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestLockByIDIssuesRowLockOnPostgres(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "external_id", "email", "full_name", "role", "created_at", "updated_at"}).
			AddRow(int64(42), "user_42", "a@example.com", "Ada", "USER", now, now))

	user, err := Provide().LockByID(context.Background(), db, 42)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "user_42", user.ExternalID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLockByIDMissingRow(t *testing.T) {
	db := testutil.NewDB(t)

	user, err := Provide().LockByID(context.Background(), db, 1)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestUpsertKeepsIdentityOnConflict(t *testing.T) {
	db := testutil.NewDB(t)
	node := testutil.NewNode(t)
	repo := Provide()
	ctx := context.Background()

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	first, err := repo.Upsert(ctx, db, &domain.User{
		ID:         node.Generate(),
		ExternalID: "user_abc",
		Email:      "old@example.com",
		FullName:   "Old Name",
		Role:       domain.RoleUser,
		CreatedAt:  created,
		UpdatedAt:  created,
	})
	require.NoError(t, err)

	later := created.Add(time.Hour)
	second, err := repo.Upsert(ctx, db, &domain.User{
		ID:         node.Generate(),
		ExternalID: "user_abc",
		Email:      "new@example.com",
		FullName:   "New Name",
		Role:       domain.RoleAdmin,
		CreatedAt:  later,
		UpdatedAt:  later,
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "new@example.com", second.Email)
	assert.Equal(t, "New Name", second.FullName)
	assert.Equal(t, domain.RoleAdmin, second.Role)
	assert.True(t, second.CreatedAt.Equal(created))

	count, err := repo.Count(ctx, db, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestDeleteWithDependentsRemovesOwnedRows(t *testing.T) {
	db := testutil.NewDB(t)
	node := testutil.NewNode(t)
	repo := Provide()
	ctx := context.Background()

	admin := testutil.SeedUser(t, db, node, "user_admin", domain.RoleAdmin)
	member := testutil.SeedUser(t, db, node, "user_member", domain.RoleUser)
	now := time.Now().UTC()

	require.NoError(t, db.Exec(`INSERT INTO subscriptions (id, user_id, status, started_at, created_at, updated_at) VALUES (?, ?, 'ACTIVE', ?, ?, ?)`,
		node.Generate(), member.ID, now, now, now).Error)
	require.NoError(t, db.Exec(`INSERT INTO credit_ledger_entries (id, user_id, delta, admin_id, created_at) VALUES (?, ?, 5, ?, ?)`,
		node.Generate(), member.ID, admin.ID, now).Error)
	require.NoError(t, db.Exec(`INSERT INTO payments (id, user_id, amount_tnd, month, paid_at, created_at) VALUES (?, ?, 10, '2024-01', ?, ?)`,
		node.Generate(), member.ID, now, now).Error)

	require.NoError(t, repo.DeleteWithDependents(ctx, db, member.ID))

	assert.Equal(t, int64(0), testutil.CountRows(t, db, "subscriptions"))
	assert.Equal(t, int64(0), testutil.CountRows(t, db, "credit_ledger_entries"))
	assert.Equal(t, int64(0), testutil.CountRows(t, db, "payments"))

	gone, err := repo.FindByID(ctx, db, member.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	stillThere, err := repo.FindByID(ctx, db, admin.ID)
	require.NoError(t, err)
	require.NotNil(t, stillThere)
}
