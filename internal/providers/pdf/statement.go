package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	ledgerdomain "github.com/smallbiznis/creditdesk/internal/ledger/domain"
	paymentdomain "github.com/smallbiznis/creditdesk/internal/payment/domain"
	userdomain "github.com/smallbiznis/creditdesk/internal/user/domain"
)

const dateLayout = "2006-01-02"

type StatementData struct {
	Title       string
	GeneratedAt time.Time
	FullName    string
	Email       string
	ExternalID  string
	Status      string
	ExpiresAt   *time.Time
	Balance     int64
	Credits     []StatementCredit
	Payments    []StatementPayment
}

type StatementCredit struct {
	Date  time.Time
	Delta int64
	Note  string
	Admin string
}

type StatementPayment struct {
	PaidAt time.Time
	Month  string
	Amount string
	Note   string
}

// StatementFromDetail flattens an account into printable rows.
func StatementFromDetail(detail userdomain.Detail, generatedAt time.Time) StatementData {
	data := StatementData{
		Title:       "Account statement",
		GeneratedAt: generatedAt,
		FullName:    detail.User.FullName,
		Email:       detail.User.Email,
		ExternalID:  detail.User.ExternalID,
		Status:      "NONE",
		Balance:     detail.Balance,
	}
	if latest := detail.LatestSubscription(); latest != nil {
		data.Status = string(latest.Status)
		data.ExpiresAt = latest.ExpiresAt
	}
	for _, entry := range detail.Credits {
		data.Credits = append(data.Credits, creditRow(entry))
	}
	for _, payment := range detail.Payments {
		data.Payments = append(data.Payments, paymentRow(payment))
	}
	return data
}

func creditRow(entry ledgerdomain.EntryView) StatementCredit {
	row := StatementCredit{Date: entry.CreatedAt, Delta: entry.Delta, Admin: entry.AdminName}
	if entry.Note != nil {
		row.Note = *entry.Note
	}
	return row
}

func paymentRow(payment paymentdomain.Payment) StatementPayment {
	row := StatementPayment{
		PaidAt: payment.PaidAt,
		Month:  payment.Month,
		Amount: payment.AmountTnd.StringFixed(3) + " TND",
	}
	if payment.Note != nil {
		row.Note = *payment.Note
	}
	return row
}

// StatementFilename returns "statement-<slug>.pdf" for the account holder.
func StatementFilename(fullName, externalID string) string {
	base := slug.Make(strings.TrimSpace(fullName))
	if base == "" {
		base = slug.Make(externalID)
	}
	if base == "" {
		base = "account"
	}
	return fmt.Sprintf("statement-%s.pdf", base)
}

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateStatement(ctx context.Context, data StatementData) (io.Reader, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	title := data.Title
	if title == "" {
		title = "Account statement"
	}
	m.AddRow(14,
		text.NewCol(8, title, props.Text{Size: 18, Style: fontstyle.Bold, Align: align.Left}),
		text.NewCol(4, "Generated "+data.GeneratedAt.Format(dateLayout), props.Text{Size: 9, Align: align.Right, Top: 4}),
	)

	expires := "-"
	if data.ExpiresAt != nil {
		expires = data.ExpiresAt.Format(dateLayout)
	}
	m.AddRow(26,
		col.New(6).Add(
			text.New(data.FullName, props.Text{Style: fontstyle.Bold}),
			text.New(data.Email, props.Text{Top: 5, Size: 9}),
			text.New(data.ExternalID, props.Text{Top: 10, Size: 8}),
		),
		col.New(6).Add(
			text.New("Subscription: "+data.Status, props.Text{Align: align.Right}),
			text.New("Expires: "+expires, props.Text{Top: 5, Size: 9, Align: align.Right}),
			text.New(fmt.Sprintf("Balance: %d credits", data.Balance), props.Text{Top: 10, Style: fontstyle.Bold, Align: align.Right}),
		),
	)

	m.AddRow(10, text.NewCol(12, "Credits", props.Text{Size: 12, Style: fontstyle.Bold, Top: 3}))
	m.AddRow(8,
		text.NewCol(3, "Date", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Delta", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(4, "Note", props.Text{Style: fontstyle.Bold, Size: 9, Left: 3}),
		text.NewCol(3, "By", props.Text{Style: fontstyle.Bold, Size: 9}),
	)
	m.AddRow(2, line.NewCol(12))
	if len(data.Credits) == 0 {
		m.AddRow(8, text.NewCol(12, "No credit movements.", props.Text{Size: 9}))
	}
	for _, credit := range data.Credits {
		m.AddRow(7,
			text.NewCol(3, credit.Date.Format(dateLayout), props.Text{Size: 9}),
			text.NewCol(2, fmt.Sprintf("%+d", credit.Delta), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(4, credit.Note, props.Text{Size: 9, Left: 3}),
			text.NewCol(3, credit.Admin, props.Text{Size: 9}),
		)
	}

	m.AddRow(10, text.NewCol(12, "Payments", props.Text{Size: 12, Style: fontstyle.Bold, Top: 3}))
	m.AddRow(8,
		text.NewCol(3, "Paid", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Month", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(4, "Note", props.Text{Style: fontstyle.Bold, Size: 9, Left: 3}),
	)
	m.AddRow(2, line.NewCol(12))
	if len(data.Payments) == 0 {
		m.AddRow(8, text.NewCol(12, "No payments recorded.", props.Text{Size: 9}))
	}
	for _, payment := range data.Payments {
		m.AddRow(7,
			text.NewCol(3, payment.PaidAt.Format(dateLayout), props.Text{Size: 9}),
			text.NewCol(2, payment.Month, props.Text{Size: 9}),
			text.NewCol(3, payment.Amount, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(4, payment.Note, props.Text{Size: 9, Left: 3}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}
