package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	handlers "github.com/oksasatya/go-account-service/internal/interface/http"
	"github.com/oksasatya/go-account-service/internal/interface/middleware"
)

// AccountModule mounts the account lifecycle routes under /api/v1/users.
// Public: POST "", POST /login, GET /activate/:id, POST /activation/resend,
// POST /password/forgot, POST /password/reset.
// Protected: GET /search.
type AccountModule struct {
	Handler *handlers.AccountHandler
	JWT     middleware.TokenParser
	Redis   *redis.Client
	Logger  logrus.FieldLogger
}

func NewAccountModule(h *handlers.AccountHandler, jwt middleware.TokenParser, rdb *redis.Client, logger logrus.FieldLogger) *AccountModule {
	return &AccountModule{Handler: h, JWT: jwt, Redis: rdb, Logger: logger}
}

func (m *AccountModule) limit(max int, key middleware.KeyFunc) gin.HandlerFunc {
	return middleware.RateLimit(m.Redis, middleware.RateLimitOptions{
		Max:    max,
		Window: time.Minute,
		Key:    key,
		Logger: m.Logger,
	})
}

func (m *AccountModule) Register(rg *gin.RouterGroup) {
	users := rg.Group("/v1/users")

	// per IP and route; email-triggering routes are the tightest
	strict := m.limit(5, middleware.KeyByIPAndPath())
	login := m.limit(10, middleware.KeyByIPAndPath())
	general := m.limit(60, middleware.KeyByIP())

	users.POST("", strict, m.Handler.Register)
	users.POST("/login", login, m.Handler.Login)
	users.GET("/activate/:id", general, m.Handler.Activate)
	users.POST("/activation/resend", strict, m.Handler.ResendActivation)
	users.POST("/password/forgot", strict, m.Handler.ForgotPassword)
	users.POST("/password/reset", login, m.Handler.ResetPassword)

	auth := users.Group("")
	auth.Use(middleware.JWTAuth(m.JWT), general)
	auth.GET("/search", m.Handler.Search)
}
