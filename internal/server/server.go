package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/congregate/internal/config"
	entitlementdomain "github.com/smallbiznis/congregate/internal/entitlement/domain"
	"github.com/smallbiznis/congregate/internal/guard"
	identitydomain "github.com/smallbiznis/congregate/internal/identity/domain"
	"github.com/smallbiznis/congregate/internal/identity/session"
	"github.com/smallbiznis/congregate/internal/observability"
	obsmiddleware "github.com/smallbiznis/congregate/internal/observability/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Log:             log,
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, log *zap.Logger) *gin.Engine {
	return NewEngine(obsCfg, log)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	db             *gorm.DB
	log            *zap.Logger
	sessions       *session.Manager
	identitySvc    identitydomain.Service
	entitlementSvc entitlementdomain.Service
	guard          *guard.Guard
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	DB             *gorm.DB
	Log            *zap.Logger
	Sessions       *session.Manager
	IdentitySvc    identitydomain.Service
	EntitlementSvc entitlementdomain.Service
	Guard          *guard.Guard
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		db:             p.DB,
		log:            p.Log.Named("server"),
		sessions:       p.Sessions,
		identitySvc:    p.IdentitySvc,
		entitlementSvc: p.EntitlementSvc,
		guard:          p.Guard,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerAdminRoutes()
	svc.registerAppRoutes()

	return svc
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/login", s.Login)
	auth.POST("/logout", s.Logout)
	auth.GET("/me", s.WebAuthRequired(), s.Me)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	// -------- Entitlements --------
	api.GET("/entitlements", s.GetEntitlements)
	api.GET("/entitlements/:key", s.GetEntitlement)
	api.GET("/navigation", s.Navigation)

	// -------- Gated actions --------
	api.POST("/groups/messages", s.SendGroupMessage)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin", s.AuthRequired())

	admin.PUT("/features/:key/override", s.SetOverride)
	admin.DELETE("/features/:key/override", s.DeleteOverride)
	admin.PUT("/subscription", s.SetSubscription)
}

func (s *Server) registerAppRoutes() {
	s.engine.GET(signInPath, s.SignIn)
	s.engine.GET(upgradePath, s.Upgrade)

	app := s.engine.Group("/app", s.WebAuthRequired())

	app.GET("/people", s.RequireFeaturePage(entitlementdomain.FeaturePeople), s.PeoplePage)
	app.GET("/events", s.RequireFeaturePage(entitlementdomain.FeatureEvents), s.EventsPage)
	app.GET("/groups", s.RequireFeaturePage(entitlementdomain.FeatureGroups), s.GroupsPage)
	app.GET("/checkin", s.RequireFeaturePage(entitlementdomain.FeatureCheckin), s.CheckinPage)
}
