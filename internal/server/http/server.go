// Package httpserver exposes the session lifecycle over HTTP.
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/avolkov-dev/authguard/internal/config"
	"github.com/avolkov-dev/authguard/internal/obs"
	"github.com/avolkov-dev/authguard/internal/service"
)

// Server wraps the gin engine in a stoppable http.Server.
type Server struct {
	srv *http.Server
	log *zap.Logger
}

// New builds the router and binds it to the configured address.
func New(
	cfg *config.Config,
	auth service.AuthService,
	account service.AccountService,
	admin service.AdminService,
	log *zap.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(log))

	if len(cfg.AllowedOrigins) > 0 {
		cc := cors.DefaultConfig()
		cc.AllowOrigins = cfg.AllowedOrigins
		// cookies carry the session, cross-origin calls need credentials
		cc.AllowCredentials = true
		engine.Use(cors.New(cc))
	}

	h := &handler{cfg: cfg, auth: auth, account: account, admin: admin, log: log}
	h.register(engine)

	return &Server{
		srv: &http.Server{Addr: cfg.Addr, Handler: engine},
		log: log,
	}
}

// Run serves until Shutdown is called.
func (s *Server) Run() error {
	s.log.Info("http server listening", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (h *handler) register(e *gin.Engine) {
	e.GET("/ping", h.ping)
	e.GET("/metrics", gin.WrapH(obs.Handler()))

	auth := e.Group("/api/v1/auth")
	auth.POST("/sign_up", h.signUp)
	auth.POST("/login", h.login)
	auth.GET("/user_info", h.sessionRequired(), h.userInfo)
	auth.POST("/refresh", h.refresh)
	auth.POST("/logout", h.sessionRequired(), h.logout)

	profile := e.Group("/api/v1/profile", h.sessionRequired())
	profile.GET("/self_data", h.selfData)
	profile.PUT("/self_data", h.changeProfile)
	profile.POST("/change_password", h.changePassword)
	profile.GET("/user_history", h.userHistory)
	profile.POST("/change-level", h.changeLevel)

	admin := e.Group("/api/v1/admin", h.sessionRequired(), h.adminRequired())
	admin.POST("/roles", h.createRole)
	admin.PUT("/roles/:id", h.updateRole)
	admin.DELETE("/roles/:id", h.deleteRole)
	admin.POST("/roles/assign", h.assignRole)
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}
