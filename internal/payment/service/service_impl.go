package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/creditdesk/internal/clock"
	obsmetrics "github.com/smallbiznis/creditdesk/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/creditdesk/internal/payment/domain"
	userdomain "github.com/smallbiznis/creditdesk/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       paymentdomain.Repository
	UserRepo   userdomain.Repository
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       paymentdomain.Repository
	userRepo   userdomain.Repository
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		userRepo:   p.UserRepo,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Create(ctx context.Context, req paymentdomain.CreateRequest) (paymentdomain.Payment, error) {
	var payment paymentdomain.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		payment, err = s.CreateTx(ctx, tx, req)
		return err
	})
	if err != nil {
		return paymentdomain.Payment{}, err
	}
	return payment, nil
}

func (s *Service) CreateTx(ctx context.Context, tx *gorm.DB, req paymentdomain.CreateRequest) (paymentdomain.Payment, error) {
	if req.UserID == 0 {
		return paymentdomain.Payment{}, paymentdomain.ErrInvalidUser
	}
	if err := validateAmount(req.AmountTnd); err != nil {
		return paymentdomain.Payment{}, err
	}
	month := strings.TrimSpace(req.Month)
	if !paymentdomain.ValidMonth(month) {
		return paymentdomain.Payment{}, paymentdomain.ErrInvalidMonth
	}

	user, err := s.userRepo.FindByID(ctx, tx, req.UserID)
	if err != nil {
		return paymentdomain.Payment{}, err
	}
	if user == nil {
		return paymentdomain.Payment{}, paymentdomain.ErrUserNotFound
	}

	now := s.clock.Now()
	paidAt := now
	if req.PaidAt != nil && !req.PaidAt.IsZero() {
		paidAt = req.PaidAt.UTC()
	}

	payment := paymentdomain.Payment{
		ID:        s.genID.Generate(),
		UserID:    req.UserID,
		AmountTnd: req.AmountTnd,
		Month:     month,
		Note:      optionalNote(req.Note),
		PaidAt:    paidAt,
		CreatedAt: now,
	}
	if err := s.repo.Insert(ctx, tx, &payment); err != nil {
		return paymentdomain.Payment{}, err
	}

	source := req.Source
	if source == "" {
		source = paymentdomain.SourceManual
	}
	s.obsMetrics.RecordPayment(ctx, string(source))
	s.log.Debug("payment recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("user_id", payment.UserID.String()),
		zap.String("month", payment.Month),
		zap.String("source", string(source)),
	)
	return payment, nil
}

func (s *Service) ListByUser(ctx context.Context, userID snowflake.ID, limit int) ([]paymentdomain.Payment, error) {
	if userID == 0 {
		return nil, paymentdomain.ErrInvalidUser
	}
	items, err := s.repo.ListByUser(ctx, s.db, userID, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []paymentdomain.Payment{}
	}
	return items, nil
}

func (s *Service) Recent(ctx context.Context, limit int) ([]paymentdomain.PaymentView, error) {
	items, err := s.repo.Recent(ctx, s.db, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []paymentdomain.PaymentView{}
	}
	return items, nil
}

func (s *Service) RevenueByMonth(ctx context.Context) ([]paymentdomain.MonthlyRevenue, error) {
	rows, err := s.repo.RevenueByMonth(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []paymentdomain.MonthlyRevenue{}
	}
	return rows, nil
}

func (s *Service) TotalRevenue(ctx context.Context) (decimal.Decimal, error) {
	total, err := s.repo.Sum(ctx, s.db)
	if err != nil {
		return decimal.Zero, err
	}
	return total.Round(paymentdomain.AmountScale), nil
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return paymentdomain.ErrInvalidAmount
	}
	if !amount.Equal(amount.Round(paymentdomain.AmountScale)) {
		return paymentdomain.ErrInvalidAmount
	}
	return nil
}

func optionalNote(note string) *string {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil
	}
	return &note
}
