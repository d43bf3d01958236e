package server

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/creditdesk/internal/audit"
	auditdomain "github.com/smallbiznis/creditdesk/internal/audit/domain"
	"github.com/smallbiznis/creditdesk/internal/auth"
	authdomain "github.com/smallbiznis/creditdesk/internal/auth/domain"
	"github.com/smallbiznis/creditdesk/internal/auth/session"
	"github.com/smallbiznis/creditdesk/internal/authorization"
	"github.com/smallbiznis/creditdesk/internal/cache"
	"github.com/smallbiznis/creditdesk/internal/clock"
	"github.com/smallbiznis/creditdesk/internal/config"
	"github.com/smallbiznis/creditdesk/internal/directory"
	"github.com/smallbiznis/creditdesk/internal/identity"
	identitydomain "github.com/smallbiznis/creditdesk/internal/identity/domain"
	"github.com/smallbiznis/creditdesk/internal/ledger"
	"github.com/smallbiznis/creditdesk/internal/observability"
	obslogger "github.com/smallbiznis/creditdesk/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/creditdesk/internal/observability/metrics"
	obstracing "github.com/smallbiznis/creditdesk/internal/observability/tracing"
	"github.com/smallbiznis/creditdesk/internal/overview"
	overviewdomain "github.com/smallbiznis/creditdesk/internal/overview/domain"
	"github.com/smallbiznis/creditdesk/internal/payment"
	"github.com/smallbiznis/creditdesk/internal/providers"
	"github.com/smallbiznis/creditdesk/internal/providers/pdf"
	"github.com/smallbiznis/creditdesk/internal/ratelimit"
	"github.com/smallbiznis/creditdesk/internal/subscription"
	subscriptiondomain "github.com/smallbiznis/creditdesk/internal/subscription/domain"
	"github.com/smallbiznis/creditdesk/internal/user"
	userdomain "github.com/smallbiznis/creditdesk/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	cache.Module,
	ratelimit.Module,
	directory.Module,
	auth.Module,
	authorization.Module,
	audit.Module,
	ledger.Module,
	payment.Module,
	subscription.Module,
	user.Module,
	identity.Module,
	overview.Module,
	providers.Module,
	fx.Provide(NewServer),
	fx.Invoke(run),
)

const shutdownTimeout = 10 * time.Second

var registerValidatorOnce sync.Once

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	registerValidatorOnce.Do(useJSONFieldNames)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
		QuietRoutes:     []string{"/health", "/metrics"},
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// useJSONFieldNames makes binding errors report the json name of a field.
func useJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
}

func run(lc fx.Lifecycle, s *Server, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	clock           clock.Clock
	sessions        *session.Manager
	verifier        authdomain.Verifier
	gate            *authorization.Gate
	webhooks        *directory.WebhookVerifier
	userSvc         userdomain.Service
	subscriptionSvc subscriptiondomain.Service
	identitySvc     identitydomain.Service
	overviewSvc     overviewdomain.Service
	auditSvc        auditdomain.Service
	pdf             pdf.Provider
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	Clock           clock.Clock
	Sessions        *session.Manager
	Verifier        authdomain.Verifier
	Gate            *authorization.Gate
	Webhooks        *directory.WebhookVerifier
	UserSvc         userdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	IdentitySvc     identitydomain.Service
	OverviewSvc     overviewdomain.Service
	AuditSvc        auditdomain.Service
	PDF             pdf.Provider
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		clock:           p.Clock,
		sessions:        p.Sessions,
		verifier:        p.Verifier,
		gate:            p.Gate,
		webhooks:        p.Webhooks,
		userSvc:         p.UserSvc,
		subscriptionSvc: p.SubscriptionSvc,
		identitySvc:     p.IdentitySvc,
		overviewSvc:     p.OverviewSvc,
		auditSvc:        p.AuditSvc,
		pdf:             p.PDF,
	}

	svc.registerWebhookRoutes()
	svc.registerAdminRoutes()
	svc.registerSelfRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/api/webhooks/directory", s.HandleDirectoryWebhook)
}

func (s *Server) registerAdminRoutes() {
	api := s.engine.Group("/api", s.SessionRequired())

	// -------- Users --------
	api.GET("/users", s.RequireAdmin(authorization.ObjectUser, authorization.ActionView), s.ListUsers)
	api.POST("/users", s.RequireAdmin(authorization.ObjectUser, authorization.ActionCreate), s.CreateUser)
	api.POST("/users/sync", s.RequireAdmin(authorization.ObjectDirectory, authorization.ActionSync), s.SyncUsers)
	api.GET("/users/:id", s.RequireAdmin(authorization.ObjectUser, authorization.ActionView), s.GetUser)
	api.PATCH("/users/:id", s.RequireAdmin(authorization.ObjectUser, authorization.ActionUpdate), s.UpdateUser)
	api.POST("/users/:id/activate", s.RequireAdmin(authorization.ObjectSubscription, authorization.ActionActivate), s.ActivateUser)
	api.GET("/users/:id/statement.pdf", s.RequireAdmin(authorization.ObjectStatement, authorization.ActionView), s.GetUserStatement)

	// -------- Credits --------
	api.GET("/users/:id/credits", s.RequireAdmin(authorization.ObjectCredit, authorization.ActionView), s.GetUserCredits)
	api.POST("/users/:id/credits", s.RequireAdmin(authorization.ObjectCredit, authorization.ActionAdjust), s.AdjustCredit)

	// -------- Payments --------
	api.GET("/payments", s.RequireAdmin(authorization.ObjectPayment, authorization.ActionView), s.ListPayments)
	api.POST("/payments", s.RequireAdmin(authorization.ObjectPayment, authorization.ActionCreate), s.RecordPayment)

	api.GET("/overview", s.RequireAdmin(authorization.ObjectOverview, authorization.ActionView), s.GetOverview)
	api.GET("/audit_logs", s.RequireAdmin(authorization.ObjectAuditLog, authorization.ActionView), s.ListAuditLogs)
}

func (s *Server) registerSelfRoutes() {
	me := s.engine.Group("/api/me", s.SessionRequired(), s.RequireSelf())

	me.GET("", s.GetMe)
	me.GET("/history", s.GetMyHistory)
	me.GET("/statement.pdf", s.GetMyStatement)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
