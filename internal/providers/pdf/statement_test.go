package pdf

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	ledgerdomain "github.com/smallbiznis/creditdesk/internal/ledger/domain"
	paymentdomain "github.com/smallbiznis/creditdesk/internal/payment/domain"
	subscriptiondomain "github.com/smallbiznis/creditdesk/internal/subscription/domain"
	userdomain "github.com/smallbiznis/creditdesk/internal/user/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(v string) *string { return &v }

func sampleDetail() userdomain.Detail {
	at := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	return userdomain.Detail{
		User: userdomain.User{ID: snowflake.ID(1), ExternalID: "user_a", Email: "alice@example.com", FullName: "Alice Ünal"},
		Subscriptions: []subscriptiondomain.Subscription{
			{ID: snowflake.ID(2), UserID: snowflake.ID(1), Status: subscriptiondomain.StatusActive, StartedAt: at},
		},
		Credits: []ledgerdomain.EntryView{
			{Entry: ledgerdomain.Entry{ID: snowflake.ID(3), UserID: snowflake.ID(1), Delta: 50, Note: strPtr("Initial credit allocation"), CreatedAt: at}, AdminName: "Ada"},
			{Entry: ledgerdomain.Entry{ID: snowflake.ID(4), UserID: snowflake.ID(1), Delta: -5, CreatedAt: at}},
		},
		Payments: []paymentdomain.Payment{
			{ID: snowflake.ID(5), UserID: snowflake.ID(1), AmountTnd: decimal.RequireFromString("12.5"), Month: "2024-06", PaidAt: at},
		},
		Balance: 45,
	}
}

func TestStatementFromDetail(t *testing.T) {
	data := StatementFromDetail(sampleDetail(), time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, "ACTIVE", data.Status)
	assert.Equal(t, int64(45), data.Balance)
	require.Len(t, data.Credits, 2)
	assert.Equal(t, "Initial credit allocation", data.Credits[0].Note)
	assert.Equal(t, "", data.Credits[1].Note)
	require.Len(t, data.Payments, 1)
	assert.Equal(t, "12.500 TND", data.Payments[0].Amount)

	empty := StatementFromDetail(userdomain.Detail{}, time.Now())
	assert.Equal(t, "NONE", empty.Status)
}

func TestGenerateStatement(t *testing.T) {
	reader, err := New().GenerateStatement(context.Background(), StatementFromDetail(sampleDetail(), time.Now()))
	require.NoError(t, err)

	body, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(body[:4]))
}

func TestStatementFilename(t *testing.T) {
	assert.Equal(t, "statement-alice-unal.pdf", StatementFilename("Alice Ünal", "user_a"))
	assert.Equal(t, "statement-user_a.pdf", StatementFilename("  ", "user_a"))
	assert.Equal(t, "statement-account.pdf", StatementFilename("", ""))
}
