package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/creditdesk/internal/audit/domain"
	"github.com/smallbiznis/creditdesk/internal/cache"
	"github.com/smallbiznis/creditdesk/internal/clock"
	"github.com/smallbiznis/creditdesk/internal/config"
	"github.com/smallbiznis/creditdesk/internal/directory"
	identitydomain "github.com/smallbiznis/creditdesk/internal/identity/domain"
	obsmetrics "github.com/smallbiznis/creditdesk/internal/observability/metrics"
	"github.com/smallbiznis/creditdesk/internal/ratelimit"
	subscriptiondomain "github.com/smallbiznis/creditdesk/internal/subscription/domain"
	userdomain "github.com/smallbiznis/creditdesk/internal/user/domain"
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
	Directory        directory.Directory
	Settings         *config.DirectoryConfigHolder
	UserRepo         userdomain.Repository
	SubscriptionRepo subscriptiondomain.Repository
	SubscriptionSvc  subscriptiondomain.Service
	AuditSvc         auditdomain.Service
	RoleCache        *cache.RoleCache     `optional:"true"`
	SyncGuard        *ratelimit.SyncGuard `optional:"true"`
	ObsMetrics       *obsmetrics.Metrics  `optional:"true"`
}

type Service struct {
	db               *gorm.DB
	log              *zap.Logger
	genID            *snowflake.Node
	clock            clock.Clock
	directory        directory.Directory
	settings         *config.DirectoryConfigHolder
	userRepo         userdomain.Repository
	subscriptionRepo subscriptiondomain.Repository
	subscriptionSvc  subscriptiondomain.Service
	auditSvc         auditdomain.Service
	roleCache        *cache.RoleCache
	syncGuard        *ratelimit.SyncGuard
	obsMetrics       *obsmetrics.Metrics
}

func NewService(p Params) identitydomain.Service {
	return &Service{
		db:               p.DB,
		log:              p.Log.Named("identity.service"),
		genID:            p.GenID,
		clock:            p.Clock,
		directory:        p.Directory,
		settings:         p.Settings,
		userRepo:         p.UserRepo,
		subscriptionRepo: p.SubscriptionRepo,
		subscriptionSvc:  p.SubscriptionSvc,
		auditSvc:         p.AuditSvc,
		roleCache:        p.RoleCache,
		syncGuard:        p.SyncGuard,
		obsMetrics:       p.ObsMetrics,
	}
}

// Sync pages through the directory and upserts every account. Each account is
// committed on its own, so a failure part way leaves earlier accounts applied;
// running again converges because seeding only happens for users with no
// subscription at all.
func (s *Service) Sync(ctx context.Context) (identitydomain.SyncResult, error) {
	release, err := s.syncGuard.Acquire(ctx)
	if err != nil {
		return identitydomain.SyncResult{}, err
	}
	defer release()

	settings := s.settings.Get()
	pageSize := settings.PageSize
	if pageSize <= 0 {
		pageSize = config.DefaultDirectorySettings().PageSize
	}

	var result identitydomain.SyncResult
	for offset := 0; ; {
		page, err := s.directory.ListUsers(ctx, pageSize, offset)
		if err != nil {
			s.obsMetrics.RecordSync(ctx, "error", result.Created, result.Updated)
			s.log.Error("list directory users failed", zap.Int("offset", offset), zap.Error(err))
			return identitydomain.SyncResult{}, err
		}

		for _, record := range page {
			created, err := s.reconcile(ctx, record, settings)
			if err != nil {
				s.obsMetrics.RecordSync(ctx, "error", result.Created, result.Updated)
				s.log.Error("reconcile directory user failed",
					zap.String("external_id", record.ID),
					zap.Error(err),
				)
				return identitydomain.SyncResult{}, err
			}
			result.Synced++
			if created {
				result.Created++
			} else {
				result.Updated++
			}
		}

		if len(page) < pageSize {
			break
		}
		offset += len(page)
	}

	if err := s.auditSvc.AuditLog(ctx, "", nil,
		auditdomain.ActionDirectorySync,
		auditdomain.TargetDirectory,
		nil,
		map[string]any{
			"synced":  result.Synced,
			"created": result.Created,
			"updated": result.Updated,
		},
	); err != nil {
		s.log.Warn("audit directory sync failed", zap.Error(err))
	}

	s.obsMetrics.RecordSync(ctx, "ok", result.Created, result.Updated)
	s.log.Info("directory sync finished",
		zap.Int("synced", result.Synced),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
	)
	return result, nil
}

// reconcile upserts one account and seeds a pending subscription for a regular
// user that has none. It reports whether a subscription was seeded.
func (s *Service) reconcile(ctx context.Context, record directory.User, settings config.DirectorySettings) (bool, error) {
	user, err := s.projection(record, settings)
	if err != nil {
		return false, err
	}

	created := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stored, err := s.userRepo.Upsert(ctx, tx, &user)
		if err != nil {
			return err
		}
		if stored == nil || stored.Role != userdomain.RoleUser {
			return nil
		}

		count, err := s.subscriptionRepo.CountByUser(ctx, tx, stored.ID)
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		if _, err := s.subscriptionSvc.CreateTx(ctx, tx, subscriptiondomain.CreateRequest{
			UserID: stored.ID,
			Status: subscriptiondomain.StatusPendingActivation,
		}); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

func (s *Service) HandleEvent(ctx context.Context, event directory.Event) error {
	var err error
	switch event.Type {
	case directory.EventUserCreated:
		err = s.handleCreated(ctx, event.Data)
	case directory.EventUserUpdated:
		err = s.handleUpdated(ctx, event.Data)
	case directory.EventUserDeleted:
		err = s.handleDeleted(ctx, event.Data)
	default:
		s.log.Debug("ignoring directory event", zap.String("type", event.Type))
		s.obsMetrics.RecordWebhookEvent(ctx, event.Type, "ignored")
		return nil
	}

	if err != nil {
		s.obsMetrics.RecordWebhookEvent(ctx, event.Type, "error")
		return err
	}
	s.obsMetrics.RecordWebhookEvent(ctx, event.Type, "ok")
	return nil
}

// handleCreated records the account without seeding a subscription; the next
// sync seeds it.
func (s *Service) handleCreated(ctx context.Context, data json.RawMessage) error {
	var record directory.User
	if err := json.Unmarshal(data, &record); err != nil {
		return directory.ErrInvalidPayload
	}
	user, err := s.projection(record, s.settings.Get())
	if err != nil {
		return err
	}
	if _, err := s.userRepo.Upsert(ctx, s.db, &user); err != nil {
		return err
	}
	s.log.Info("directory user created", zap.String("external_id", user.ExternalID))
	return nil
}

// handleUpdated refreshes email and name only. The role is left alone; the
// cached role is dropped so the next request asks the directory again.
func (s *Service) handleUpdated(ctx context.Context, data json.RawMessage) error {
	var record directory.User
	if err := json.Unmarshal(data, &record); err != nil {
		return directory.ErrInvalidPayload
	}
	externalID := strings.TrimSpace(record.ID)
	if externalID == "" {
		return identitydomain.ErrInvalidExternalID
	}
	s.roleCache.Invalidate(ctx, externalID)

	user, err := s.userRepo.FindByExternalID(ctx, s.db, externalID)
	if err != nil {
		return err
	}
	if user == nil {
		s.log.Warn("directory update for unknown user", zap.String("external_id", externalID))
		return nil
	}

	user.Email = record.PrimaryEmail()
	user.FullName = record.DisplayName(s.settings.Get().PlaceholderName)
	user.UpdatedAt = s.clock.Now()
	return s.userRepo.UpdateProfile(ctx, s.db, user)
}

// handleDeleted removes the user and everything it owns. Unknown users are ignored.
func (s *Service) handleDeleted(ctx context.Context, data json.RawMessage) error {
	var deleted directory.DeletedUser
	if err := json.Unmarshal(data, &deleted); err != nil {
		return directory.ErrInvalidPayload
	}
	externalID := strings.TrimSpace(deleted.ID)
	if externalID == "" {
		return identitydomain.ErrInvalidExternalID
	}
	s.roleCache.Invalidate(ctx, externalID)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.userRepo.FindByExternalID(ctx, tx, externalID)
		if err != nil {
			return err
		}
		if user == nil {
			return nil
		}
		if err := s.userRepo.DeleteWithDependents(ctx, tx, user.ID); err != nil {
			return err
		}

		targetID := user.ID.String()
		return s.auditSvc.AuditLogTx(ctx, tx,
			string(auditdomain.ActorTypeDirectory),
			nil,
			auditdomain.ActionDirectoryUserDeleted,
			auditdomain.TargetUser,
			&targetID,
			map[string]any{
				"external_id": externalID,
				"email":       user.Email,
			},
		)
	})
}

func (s *Service) projection(record directory.User, settings config.DirectorySettings) (userdomain.User, error) {
	externalID := strings.TrimSpace(record.ID)
	if externalID == "" {
		return userdomain.User{}, identitydomain.ErrInvalidExternalID
	}

	role := userdomain.RoleUser
	if record.HasRole(settings.AdminRoleValue) {
		role = userdomain.RoleAdmin
	}

	now := s.clock.Now()
	return userdomain.User{
		ID:         s.genID.Generate(),
		ExternalID: externalID,
		Email:      record.PrimaryEmail(),
		FullName:   record.DisplayName(settings.PlaceholderName),
		Role:       role,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}
