package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/creditdesk/internal/clock"
	ledgerdomain "github.com/smallbiznis/creditdesk/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/creditdesk/internal/observability/metrics"
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
	Repo       ledgerdomain.Repository
	UserRepo   userdomain.Repository
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       ledgerdomain.Repository
	userRepo   userdomain.Repository
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		userRepo:   p.UserRepo,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Append(ctx context.Context, req ledgerdomain.AppendRequest) (ledgerdomain.Entry, error) {
	var entry ledgerdomain.Entry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = s.AppendTx(ctx, tx, req)
		return err
	})
	if err != nil {
		return ledgerdomain.Entry{}, err
	}
	return entry, nil
}

func (s *Service) AppendTx(ctx context.Context, tx *gorm.DB, req ledgerdomain.AppendRequest) (ledgerdomain.Entry, error) {
	if req.Delta == 0 {
		return ledgerdomain.Entry{}, ledgerdomain.ErrInvalidDelta
	}
	if req.UserID == 0 {
		return ledgerdomain.Entry{}, ledgerdomain.ErrInvalidUser
	}
	if req.AdminID == 0 {
		return ledgerdomain.Entry{}, ledgerdomain.ErrInvalidAdmin
	}

	user, err := s.userRepo.FindByID(ctx, tx, req.UserID)
	if err != nil {
		return ledgerdomain.Entry{}, err
	}
	if user == nil {
		return ledgerdomain.Entry{}, ledgerdomain.ErrUserNotFound
	}
	if req.AdminID != req.UserID {
		admin, err := s.userRepo.FindByID(ctx, tx, req.AdminID)
		if err != nil {
			return ledgerdomain.Entry{}, err
		}
		if admin == nil {
			return ledgerdomain.Entry{}, ledgerdomain.ErrAdminNotFound
		}
	}

	adminID := req.AdminID
	entry := ledgerdomain.Entry{
		ID:        s.genID.Generate(),
		UserID:    req.UserID,
		Delta:     req.Delta,
		Note:      optionalNote(req.Note),
		AdminID:   &adminID,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, tx, &entry); err != nil {
		return ledgerdomain.Entry{}, err
	}

	source := req.Source
	if source == "" {
		source = ledgerdomain.SourceAdjustment
	}
	s.obsMetrics.RecordLedgerEntry(ctx, entry.Delta, string(source))
	s.log.Debug("ledger entry appended",
		zap.String("entry_id", entry.ID.String()),
		zap.String("user_id", entry.UserID.String()),
		zap.Int64("delta", entry.Delta),
		zap.String("source", string(source)),
	)
	return entry, nil
}

func (s *Service) Balance(ctx context.Context, userID snowflake.ID) (int64, error) {
	if userID == 0 {
		return 0, ledgerdomain.ErrInvalidUser
	}
	return s.repo.SumByUser(ctx, s.db, userID)
}

func (s *Service) History(ctx context.Context, userID snowflake.ID, limit int) ([]ledgerdomain.EntryView, error) {
	if userID == 0 {
		return nil, ledgerdomain.ErrInvalidUser
	}
	entries, err := s.repo.ListByUser(ctx, s.db, userID, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []ledgerdomain.EntryView{}
	}
	return entries, nil
}

func (s *Service) TotalDistributed(ctx context.Context) (int64, error) {
	return s.repo.SumPositive(ctx, s.db)
}

func optionalNote(note string) *string {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil
	}
	return &note
}
