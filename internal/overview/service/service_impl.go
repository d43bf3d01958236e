package service

import (
	"context"
	"errors"

	ledgerdomain "github.com/smallbiznis/creditdesk/internal/ledger/domain"
	overviewdomain "github.com/smallbiznis/creditdesk/internal/overview/domain"
	paymentdomain "github.com/smallbiznis/creditdesk/internal/payment/domain"
	subscriptiondomain "github.com/smallbiznis/creditdesk/internal/subscription/domain"
	userdomain "github.com/smallbiznis/creditdesk/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log             *zap.Logger
	UserSvc         userdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	LedgerSvc       ledgerdomain.Service
	PaymentSvc      paymentdomain.Service
}

type Service struct {
	log             *zap.Logger
	userSvc         userdomain.Service
	subscriptionSvc subscriptiondomain.Service
	ledgerSvc       ledgerdomain.Service
	paymentSvc      paymentdomain.Service
}

func NewService(p Params) overviewdomain.Service {
	return &Service{
		log:             p.Log.Named("overview.service"),
		userSvc:         p.UserSvc,
		subscriptionSvc: p.SubscriptionSvc,
		ledgerSvc:       p.LedgerSvc,
		paymentSvc:      p.PaymentSvc,
	}
}

func (s *Service) Admin(ctx context.Context) (overviewdomain.AdminOverview, error) {
	totalUsers, err := s.userSvc.CountUsers(ctx)
	if err != nil {
		return overviewdomain.AdminOverview{}, err
	}
	active, err := s.subscriptionSvc.CountActive(ctx)
	if err != nil {
		return overviewdomain.AdminOverview{}, err
	}
	revenue, err := s.paymentSvc.TotalRevenue(ctx)
	if err != nil {
		return overviewdomain.AdminOverview{}, err
	}
	distributed, err := s.ledgerSvc.TotalDistributed(ctx)
	if err != nil {
		return overviewdomain.AdminOverview{}, err
	}
	byMonth, err := s.paymentSvc.RevenueByMonth(ctx)
	if err != nil {
		return overviewdomain.AdminOverview{}, err
	}
	recent, err := s.userSvc.RecentUsers(ctx, overviewdomain.RecentUsersLimit)
	if err != nil {
		return overviewdomain.AdminOverview{}, err
	}

	return overviewdomain.AdminOverview{
		TotalUsers:              totalUsers,
		ActiveSubscriptions:     active,
		TotalRevenue:            paymentdomain.NewAmount(revenue),
		TotalCreditsDistributed: distributed,
		RevenueByMonth:          byMonth,
		RecentUsers:             recent,
	}, nil
}

func (s *Service) Payments(ctx context.Context) (overviewdomain.PaymentsOverview, error) {
	byMonth, err := s.paymentSvc.RevenueByMonth(ctx)
	if err != nil {
		return overviewdomain.PaymentsOverview{}, err
	}
	recent, err := s.paymentSvc.Recent(ctx, overviewdomain.RecentPaymentsLimit)
	if err != nil {
		return overviewdomain.PaymentsOverview{}, err
	}
	return overviewdomain.PaymentsOverview{
		RevenueByMonth: byMonth,
		RecentPayments: recent,
	}, nil
}

func (s *Service) Dashboard(ctx context.Context, externalID string) (overviewdomain.Dashboard, error) {
	user, err := s.provisioned(ctx, externalID)
	if err != nil {
		return overviewdomain.Dashboard{}, err
	}

	subscription, err := s.subscriptionSvc.Latest(ctx, user.ID)
	if err != nil {
		return overviewdomain.Dashboard{}, err
	}
	balance, err := s.ledgerSvc.Balance(ctx, user.ID)
	if err != nil {
		return overviewdomain.Dashboard{}, err
	}
	credits, err := s.ledgerSvc.History(ctx, user.ID, overviewdomain.DashboardCreditsLimit)
	if err != nil {
		return overviewdomain.Dashboard{}, err
	}
	payments, err := s.paymentSvc.ListByUser(ctx, user.ID, overviewdomain.DashboardPaymentsLimit)
	if err != nil {
		return overviewdomain.Dashboard{}, err
	}

	return overviewdomain.Dashboard{
		User:           user,
		Subscription:   subscription,
		Balance:        balance,
		RecentCredits:  credits,
		RecentPayments: payments,
	}, nil
}

func (s *Service) History(ctx context.Context, externalID string) (overviewdomain.History, error) {
	user, err := s.provisioned(ctx, externalID)
	if err != nil {
		return overviewdomain.History{}, err
	}

	credits, err := s.ledgerSvc.History(ctx, user.ID, 0)
	if err != nil {
		return overviewdomain.History{}, err
	}
	payments, err := s.paymentSvc.ListByUser(ctx, user.ID, 0)
	if err != nil {
		return overviewdomain.History{}, err
	}
	return overviewdomain.History{Credits: credits, Payments: payments}, nil
}

// provisioned finds the local row of a signed-in user. A directory account that
// has not been synced yet has none.
func (s *Service) provisioned(ctx context.Context, externalID string) (userdomain.User, error) {
	user, err := s.userSvc.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, userdomain.ErrNotFound) || errors.Is(err, userdomain.ErrInvalidExternalID) {
			return userdomain.User{}, overviewdomain.ErrNotProvisioned
		}
		return userdomain.User{}, err
	}
	return user, nil
}
