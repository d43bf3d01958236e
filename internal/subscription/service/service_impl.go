package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/creditdesk/internal/audit/domain"
	"github.com/smallbiznis/creditdesk/internal/clock"
	ledgerdomain "github.com/smallbiznis/creditdesk/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/creditdesk/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/creditdesk/internal/payment/domain"
	subscriptiondomain "github.com/smallbiznis/creditdesk/internal/subscription/domain"
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
	Repo       subscriptiondomain.Repository
	UserRepo   userdomain.Repository
	LedgerSvc  ledgerdomain.Service
	PaymentSvc paymentdomain.Service
	AuditSvc   auditdomain.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       subscriptiondomain.Repository
	userRepo   userdomain.Repository
	ledgerSvc  ledgerdomain.Service
	paymentSvc paymentdomain.Service
	auditSvc   auditdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) subscriptiondomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("subscription.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		userRepo:   p.UserRepo,
		ledgerSvc:  p.LedgerSvc,
		paymentSvc: p.PaymentSvc,
		auditSvc:   p.AuditSvc,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Create(ctx context.Context, req subscriptiondomain.CreateRequest) (subscriptiondomain.Subscription, error) {
	var subscription subscriptiondomain.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		subscription, err = s.CreateTx(ctx, tx, req)
		return err
	})
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	return subscription, nil
}

func (s *Service) CreateTx(ctx context.Context, tx *gorm.DB, req subscriptiondomain.CreateRequest) (subscriptiondomain.Subscription, error) {
	if req.UserID == 0 {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrInvalidUser
	}
	status, err := subscriptiondomain.ParseStatus(string(req.Status))
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}

	now := s.clock.Now()
	subscription := subscriptiondomain.Subscription{
		ID:        s.genID.Generate(),
		UserID:    req.UserID,
		Status:    status,
		StartedAt: now,
		ExpiresAt: req.ExpiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, tx, &subscription); err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	return subscription, nil
}

func (s *Service) Latest(ctx context.Context, userID snowflake.ID) (*subscriptiondomain.Subscription, error) {
	if userID == 0 {
		return nil, subscriptiondomain.ErrInvalidUser
	}
	return s.repo.LatestByUser(ctx, s.db, userID)
}

func (s *Service) ListByUser(ctx context.Context, userID snowflake.ID) ([]subscriptiondomain.Subscription, error) {
	if userID == 0 {
		return nil, subscriptiondomain.ErrInvalidUser
	}
	items, err := s.repo.ListByUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []subscriptiondomain.Subscription{}
	}
	return items, nil
}

func (s *Service) SetStatus(ctx context.Context, subscriptionID snowflake.ID, status subscriptiondomain.Status) (subscriptiondomain.Subscription, error) {
	var subscription subscriptiondomain.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		subscription, err = s.SetStatusTx(ctx, tx, subscriptionID, status)
		return err
	})
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	return subscription, nil
}

// SetStatusTx overwrites the status in place. There is no transition table; the
// previous status is kept only in the audit log.
func (s *Service) SetStatusTx(ctx context.Context, tx *gorm.DB, subscriptionID snowflake.ID, status subscriptiondomain.Status) (subscriptiondomain.Subscription, error) {
	if subscriptionID == 0 {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrInvalidSubscription
	}
	target, err := subscriptiondomain.ParseOverwriteStatus(string(status))
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}

	subscription, err := s.repo.FindByID(ctx, tx, subscriptionID)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	if subscription == nil {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrNotFound
	}

	previous := subscription.Status
	subscription.Status = target
	subscription.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateStatus(ctx, tx, subscription); err != nil {
		return subscriptiondomain.Subscription{}, err
	}

	targetID := subscription.ID.String()
	if err := s.auditSvc.AuditLogTx(ctx, tx, "", nil,
		auditdomain.ActionSubscriptionStatus,
		auditdomain.TargetSubscription,
		&targetID,
		map[string]any{
			"user_id":         subscription.UserID.String(),
			"previous_status": string(previous),
			"status":          string(target),
		},
	); err != nil {
		return subscriptiondomain.Subscription{}, err
	}

	return *subscription, nil
}

// Activate moves a user's current subscription to ACTIVE, or opens one, and records the
// optional credit grant and payment in the same transaction. The user row is locked for
// the duration so two concurrent activations of the same user serialize and the second
// observes ACTIVE.
func (s *Service) Activate(ctx context.Context, req subscriptiondomain.ActivateRequest) (subscriptiondomain.ActivateResult, error) {
	if req.UserID == 0 {
		return subscriptiondomain.ActivateResult{}, subscriptiondomain.ErrInvalidUser
	}
	if req.InitialCredits < 0 {
		return subscriptiondomain.ActivateResult{}, subscriptiondomain.ErrInvalidCredits
	}
	if req.PaymentAmount != nil && !req.PaymentAmount.IsPositive() {
		return subscriptiondomain.ActivateResult{}, paymentdomain.ErrInvalidAmount
	}

	adminExternalID := strings.TrimSpace(req.AdminExternalID)
	if adminExternalID == "" {
		return subscriptiondomain.ActivateResult{}, subscriptiondomain.ErrAdminNotFound
	}
	admin, err := s.userRepo.FindByExternalID(ctx, s.db, adminExternalID)
	if err != nil {
		return subscriptiondomain.ActivateResult{}, err
	}
	if admin == nil {
		return subscriptiondomain.ActivateResult{}, subscriptiondomain.ErrAdminNotFound
	}

	var result subscriptiondomain.ActivateResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.userRepo.LockByID(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return subscriptiondomain.ErrUserNotFound
		}

		current, err := s.repo.LatestByUser(ctx, tx, user.ID)
		if err != nil {
			return err
		}
		if current != nil && current.Status == subscriptiondomain.StatusActive {
			return subscriptiondomain.ErrAlreadyActive
		}

		now := s.clock.Now()
		previous := ""
		if current != nil {
			previous = string(current.Status)
			current.Status = subscriptiondomain.StatusActive
			if req.ExpiresAt != nil {
				expiresAt := req.ExpiresAt.UTC()
				current.ExpiresAt = &expiresAt
			}
			current.UpdatedAt = now
			if err := s.repo.UpdateStatus(ctx, tx, current); err != nil {
				return err
			}
			result.Subscription = *current
		} else {
			created, err := s.CreateTx(ctx, tx, subscriptiondomain.CreateRequest{
				UserID:    user.ID,
				Status:    subscriptiondomain.StatusActive,
				ExpiresAt: utcPointer(req.ExpiresAt),
			})
			if err != nil {
				return err
			}
			result.Subscription = created
		}

		if req.InitialCredits > 0 {
			entry, err := s.ledgerSvc.AppendTx(ctx, tx, ledgerdomain.AppendRequest{
				UserID:  user.ID,
				AdminID: admin.ID,
				Delta:   req.InitialCredits,
				Note:    ledgerdomain.NoteActivationGrant,
				Source:  ledgerdomain.SourceActivation,
			})
			if err != nil {
				return err
			}
			result.CreditEntry = &entry
		}

		if req.PaymentAmount != nil && strings.TrimSpace(req.PaymentMonth) != "" {
			payment, err := s.paymentSvc.CreateTx(ctx, tx, paymentdomain.CreateRequest{
				UserID:    user.ID,
				AmountTnd: *req.PaymentAmount,
				Month:     req.PaymentMonth,
				Note:      paymentdomain.NoteActivationPayment,
				Source:    paymentdomain.SourceActivation,
			})
			if err != nil {
				return err
			}
			result.Payment = &payment
		}

		adminID := admin.ID.String()
		targetID := result.Subscription.ID.String()
		return s.auditSvc.AuditLogTx(ctx, tx,
			string(auditdomain.ActorTypeAdmin),
			&adminID,
			auditdomain.ActionSubscriptionActivate,
			auditdomain.TargetSubscription,
			&targetID,
			map[string]any{
				"user_id":         user.ID.String(),
				"previous_status": previous,
				"initial_credits": req.InitialCredits,
				"payment":         result.Payment != nil,
			},
		)
	})
	if err != nil {
		s.obsMetrics.RecordActivation(ctx, activationResult(err))
		return subscriptiondomain.ActivateResult{}, err
	}

	s.obsMetrics.RecordActivation(ctx, "activated")
	s.log.Info("subscription activated",
		zap.String("user_id", req.UserID.String()),
		zap.String("subscription_id", result.Subscription.ID.String()),
		zap.Int64("initial_credits", req.InitialCredits),
	)
	return result, nil
}

func (s *Service) CountActive(ctx context.Context) (int64, error) {
	return s.repo.CountByStatus(ctx, s.db, subscriptiondomain.StatusActive)
}

func activationResult(err error) string {
	switch {
	case errors.Is(err, subscriptiondomain.ErrAlreadyActive):
		return "conflict"
	case errors.Is(err, subscriptiondomain.ErrUserNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func utcPointer(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	utc := value.UTC()
	return &utc
}
