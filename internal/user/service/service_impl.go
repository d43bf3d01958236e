package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/samber/lo"
	auditdomain "github.com/smallbiznis/creditdesk/internal/audit/domain"
	"github.com/smallbiznis/creditdesk/internal/clock"
	ledgerdomain "github.com/smallbiznis/creditdesk/internal/ledger/domain"
	paymentdomain "github.com/smallbiznis/creditdesk/internal/payment/domain"
	subscriptiondomain "github.com/smallbiznis/creditdesk/internal/subscription/domain"
	"github.com/smallbiznis/creditdesk/internal/user/domain"
	pkgdb "github.com/smallbiznis/creditdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB               *gorm.DB
	Log              *zap.Logger
	GenID            *snowflake.Node
	Clock            clock.Clock
	Repo             domain.Repository
	SubscriptionRepo subscriptiondomain.Repository
	SubscriptionSvc  subscriptiondomain.Service
	LedgerSvc        ledgerdomain.Service
	PaymentSvc       paymentdomain.Service
	AuditSvc         auditdomain.Service
}

type Service struct {
	db               *gorm.DB
	log              *zap.Logger
	genID            *snowflake.Node
	clock            clock.Clock
	repo             domain.Repository
	subscriptionRepo subscriptiondomain.Repository
	subscriptionSvc  subscriptiondomain.Service
	ledgerSvc        ledgerdomain.Service
	paymentSvc       paymentdomain.Service
	auditSvc         auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:               p.DB,
		log:              p.Log.Named("user.service"),
		genID:            p.GenID,
		clock:            p.Clock,
		repo:             p.Repo,
		subscriptionRepo: p.SubscriptionRepo,
		subscriptionSvc:  p.SubscriptionSvc,
		ledgerSvc:        p.LedgerSvc,
		paymentSvc:       p.PaymentSvc,
		auditSvc:         p.AuditSvc,
	}
}

func (s *Service) List(ctx context.Context) ([]domain.Summary, error) {
	users, err := s.repo.List(ctx, s.db, domain.ListFilter{})
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, users)
}

func (s *Service) RecentUsers(ctx context.Context, limit int) ([]domain.Summary, error) {
	users, err := s.repo.List(ctx, s.db, domain.ListFilter{Role: domain.RoleUser, Limit: limit})
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, users)
}

func (s *Service) CountUsers(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx, s.db, domain.RoleUser)
}

func (s *Service) Get(ctx context.Context, id string) (domain.Detail, error) {
	userID, err := s.ParseID(id)
	if err != nil {
		return domain.Detail{}, err
	}

	user, err := s.repo.FindByID(ctx, s.db, userID)
	if err != nil {
		return domain.Detail{}, err
	}
	if user == nil {
		return domain.Detail{}, domain.ErrNotFound
	}
	return s.detail(ctx, *user)
}

func (s *Service) GetByExternalID(ctx context.Context, externalID string) (domain.User, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return domain.User{}, domain.ErrInvalidExternalID
	}
	user, err := s.repo.FindByExternalID(ctx, s.db, externalID)
	if err != nil {
		return domain.User{}, err
	}
	if user == nil {
		return domain.User{}, domain.ErrNotFound
	}
	return *user, nil
}

// Create provisions an account by hand: the user row, its first subscription and the
// optional opening credit grant and payment, all in one transaction.
func (s *Service) Create(ctx context.Context, req domain.CreateUserRequest) (domain.Detail, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.Detail{}, domain.ErrInvalidEmail
	}
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return domain.Detail{}, domain.ErrInvalidName
	}
	if req.InitialCredits < 0 {
		return domain.Detail{}, domain.ErrInvalidCredits
	}
	if req.PaymentAmount != nil && !req.PaymentAmount.IsPositive() {
		return domain.Detail{}, paymentdomain.ErrInvalidAmount
	}

	status := subscriptiondomain.StatusActive
	if strings.TrimSpace(req.SubscriptionStatus) != "" {
		parsed, err := subscriptiondomain.ParseStatus(req.SubscriptionStatus)
		if err != nil {
			return domain.Detail{}, err
		}
		status = parsed
	}

	admin, err := s.repo.FindByExternalID(ctx, s.db, strings.TrimSpace(req.AdminExternalID))
	if err != nil {
		return domain.Detail{}, err
	}
	if admin == nil {
		return domain.Detail{}, domain.ErrAdminNotFound
	}

	externalID := strings.TrimSpace(req.ExternalID)
	if externalID == "" {
		externalID = domain.ManualExternalIDPrefix + strings.ToLower(ulid.Make().String())
	}

	now := s.clock.Now()
	user := domain.User{
		ID:         s.genID.Generate(),
		ExternalID: externalID,
		Email:      email,
		FullName:   fullName,
		Role:       domain.RoleUser,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByExternalID(ctx, tx, externalID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrDuplicateExternalID
		}
		if err := s.repo.Insert(ctx, tx, &user); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				return domain.ErrDuplicateExternalID
			}
			return err
		}

		if _, err := s.subscriptionSvc.CreateTx(ctx, tx, subscriptiondomain.CreateRequest{
			UserID:    user.ID,
			Status:    status,
			ExpiresAt: req.ExpiresAt,
		}); err != nil {
			return err
		}

		if req.InitialCredits > 0 {
			if _, err := s.ledgerSvc.AppendTx(ctx, tx, ledgerdomain.AppendRequest{
				UserID:  user.ID,
				AdminID: admin.ID,
				Delta:   req.InitialCredits,
				Note:    ledgerdomain.NoteInitialGrant,
				Source:  ledgerdomain.SourceInitialGrant,
			}); err != nil {
				return err
			}
		}

		if req.PaymentAmount != nil && strings.TrimSpace(req.PaymentMonth) != "" {
			if _, err := s.paymentSvc.CreateTx(ctx, tx, paymentdomain.CreateRequest{
				UserID:    user.ID,
				AmountTnd: *req.PaymentAmount,
				Month:     req.PaymentMonth,
				Note:      paymentdomain.NoteInitialPayment,
				Source:    paymentdomain.SourceCreateUser,
			}); err != nil {
				return err
			}
		}

		return s.auditSvc.AuditLogTx(ctx, tx,
			string(auditdomain.ActorTypeAdmin),
			lo.ToPtr(admin.ID.String()),
			auditdomain.ActionUserCreate,
			auditdomain.TargetUser,
			lo.ToPtr(user.ID.String()),
			map[string]any{
				"external_id":         externalID,
				"subscription_status": string(status),
				"initial_credits":     req.InitialCredits,
			},
		)
	})
	if err != nil {
		return domain.Detail{}, err
	}

	s.log.Info("user created", zap.String("user_id", user.ID.String()))
	return s.detail(ctx, user)
}

// Update edits the profile and/or overwrites the status of the user's most recent
// subscription. A status change on a user without subscriptions is ignored.
func (s *Service) Update(ctx context.Context, req domain.UpdateUserRequest) (domain.Detail, error) {
	userID, err := s.ParseID(req.ID)
	if err != nil {
		return domain.Detail{}, err
	}

	var fullName, email *string
	if req.FullName != nil {
		value := strings.TrimSpace(*req.FullName)
		if value == "" {
			return domain.Detail{}, domain.ErrInvalidName
		}
		fullName = &value
	}
	if req.Email != nil {
		value := strings.TrimSpace(*req.Email)
		if value == "" || !strings.Contains(value, "@") {
			return domain.Detail{}, domain.ErrInvalidEmail
		}
		email = &value
	}
	var status *subscriptiondomain.Status
	if req.SubscriptionStatus != nil {
		parsed, err := subscriptiondomain.ParseOverwriteStatus(*req.SubscriptionStatus)
		if err != nil {
			return domain.Detail{}, err
		}
		status = &parsed
	}

	var updated domain.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.repo.FindByID(ctx, tx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.ErrNotFound
		}

		changed := []string{}
		if fullName != nil || email != nil {
			if fullName != nil {
				user.FullName = *fullName
				changed = append(changed, "full_name")
			}
			if email != nil {
				user.Email = *email
				changed = append(changed, "email")
			}
			user.UpdatedAt = s.clock.Now()
			if err := s.repo.UpdateProfile(ctx, tx, user); err != nil {
				return err
			}
		}

		if status != nil {
			current, err := s.subscriptionRepo.LatestByUser(ctx, tx, user.ID)
			if err != nil {
				return err
			}
			if current != nil {
				if _, err := s.subscriptionSvc.SetStatusTx(ctx, tx, current.ID, *status); err != nil {
					return err
				}
				changed = append(changed, "subscription_status")
			}
		}

		updated = *user
		if len(changed) == 0 {
			return nil
		}
		return s.auditSvc.AuditLogTx(ctx, tx, "", nil,
			auditdomain.ActionUserUpdate,
			auditdomain.TargetUser,
			lo.ToPtr(user.ID.String()),
			map[string]any{"fields": changed},
		)
	})
	if err != nil {
		return domain.Detail{}, err
	}

	return s.detail(ctx, updated)
}

func (s *Service) AdjustCredit(ctx context.Context, req domain.AdjustCreditRequest) (domain.CreditAdjustment, error) {
	userID, err := s.ParseID(req.UserID)
	if err != nil {
		return domain.CreditAdjustment{}, err
	}
	if req.Delta == 0 {
		return domain.CreditAdjustment{}, ledgerdomain.ErrInvalidDelta
	}

	admin, err := s.repo.FindByExternalID(ctx, s.db, strings.TrimSpace(req.AdminExternalID))
	if err != nil {
		return domain.CreditAdjustment{}, err
	}
	if admin == nil {
		return domain.CreditAdjustment{}, domain.ErrAdminNotFound
	}

	var entry ledgerdomain.Entry
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = s.ledgerSvc.AppendTx(ctx, tx, ledgerdomain.AppendRequest{
			UserID:  userID,
			AdminID: admin.ID,
			Delta:   req.Delta,
			Note:    req.Note,
			Source:  ledgerdomain.SourceAdjustment,
		})
		if err != nil {
			return err
		}

		return s.auditSvc.AuditLogTx(ctx, tx,
			string(auditdomain.ActorTypeAdmin),
			lo.ToPtr(admin.ID.String()),
			auditdomain.ActionCreditAdjust,
			auditdomain.TargetLedgerEntry,
			lo.ToPtr(entry.ID.String()),
			map[string]any{
				"user_id": userID.String(),
				"delta":   req.Delta,
			},
		)
	})
	if err != nil {
		if errors.Is(err, ledgerdomain.ErrUserNotFound) {
			return domain.CreditAdjustment{}, domain.ErrNotFound
		}
		return domain.CreditAdjustment{}, err
	}

	balance, err := s.ledgerSvc.Balance(ctx, userID)
	if err != nil {
		return domain.CreditAdjustment{}, err
	}
	return domain.CreditAdjustment{Entry: entry, Balance: balance}, nil
}

func (s *Service) RecordPayment(ctx context.Context, req domain.RecordPaymentRequest) (paymentdomain.Payment, error) {
	userID, err := s.ParseID(req.UserID)
	if err != nil {
		return paymentdomain.Payment{}, err
	}

	var payment paymentdomain.Payment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		payment, err = s.paymentSvc.CreateTx(ctx, tx, paymentdomain.CreateRequest{
			UserID:    userID,
			AmountTnd: req.AmountTnd,
			Month:     req.Month,
			Note:      req.Note,
			PaidAt:    req.PaidAt,
			Source:    paymentdomain.SourceManual,
		})
		if err != nil {
			return err
		}

		return s.auditSvc.AuditLogTx(ctx, tx, "", nil,
			auditdomain.ActionPaymentRecord,
			auditdomain.TargetPayment,
			lo.ToPtr(payment.ID.String()),
			map[string]any{
				"user_id":    userID.String(),
				"amount_tnd": payment.AmountTnd.StringFixed(3),
				"month":      payment.Month,
			},
		)
	})
	if err != nil {
		if errors.Is(err, paymentdomain.ErrUserNotFound) {
			return paymentdomain.Payment{}, domain.ErrNotFound
		}
		return paymentdomain.Payment{}, err
	}
	return payment, nil
}

func (s *Service) ParseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func (s *Service) detail(ctx context.Context, user domain.User) (domain.Detail, error) {
	subscriptions, err := s.subscriptionSvc.ListByUser(ctx, user.ID)
	if err != nil {
		return domain.Detail{}, err
	}
	credits, err := s.ledgerSvc.History(ctx, user.ID, 0)
	if err != nil {
		return domain.Detail{}, err
	}
	payments, err := s.paymentSvc.ListByUser(ctx, user.ID, 0)
	if err != nil {
		return domain.Detail{}, err
	}
	balance, err := s.ledgerSvc.Balance(ctx, user.ID)
	if err != nil {
		return domain.Detail{}, err
	}
	return domain.Detail{
		User:          user,
		Subscriptions: subscriptions,
		Credits:       credits,
		Payments:      payments,
		Balance:       balance,
	}, nil
}

func (s *Service) summarize(ctx context.Context, users []domain.User) ([]domain.Summary, error) {
	summaries := make([]domain.Summary, 0, len(users))
	for _, user := range users {
		latest, err := s.subscriptionSvc.Latest(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		payments, err := s.paymentSvc.ListByUser(ctx, user.ID, 1)
		if err != nil {
			return nil, err
		}
		balance, err := s.ledgerSvc.Balance(ctx, user.ID)
		if err != nil {
			return nil, err
		}

		summary := domain.Summary{
			User:               user,
			LatestSubscription: latest,
			Balance:            balance,
		}
		if len(payments) > 0 {
			summary.LatestPayment = &payments[0]
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}
