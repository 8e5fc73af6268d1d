package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-account-service/internal/application"
	"github.com/oksasatya/go-account-service/internal/domain/apperr"
	"github.com/oksasatya/go-account-service/internal/domain/entity"
	"github.com/oksasatya/go-account-service/internal/infrastructure/search"
	"github.com/oksasatya/go-account-service/pkg/helpers"
	"github.com/oksasatya/go-account-service/pkg/response"
	"github.com/oksasatya/go-account-service/pkg/validation"
)

// AccountLifecycle is the subset of the lifecycle engine the HTTP layer drives.
type AccountLifecycle interface {
	Register(ctx context.Context, in application.RegisterInput) (string, error)
	Activate(ctx context.Context, rawToken string) (string, error)
	ResendActivation(ctx context.Context, email string) (string, error)
	Login(ctx context.Context, email, password string) (*application.LoginResult, error)
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, rawToken, newPassword string) (string, error)
}

type AccountSearcher interface {
	Search(ctx context.Context, q string, size int) ([]search.AccountDoc, error)
}

type AccountHandler struct {
	Svc       AccountLifecycle
	Directory AccountSearcher
	Logger    logrus.FieldLogger
	Cookies   *helpers.Manager
}

func NewAccountHandler(svc AccountLifecycle, dir AccountSearcher, logger logrus.FieldLogger, cookieDomain string, cookieSecure bool) *AccountHandler {
	return &AccountHandler{Svc: svc, Directory: dir, Logger: logger, Cookies: helpers.NewCookie(cookieDomain, cookieSecure)}
}

type registerRequest struct {
	Username        string `json:"username" binding:"required,username"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,pwd"`
	ConfirmPassword string `json:"confirmPassword" binding:"required,eqfield=Password"`
	Role            string `json:"role" binding:"required,role"`
	Phone           string `json:"phone" binding:"omitempty,phone"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type resetPasswordRequest struct {
	Token           string `json:"token" binding:"required"`
	Password        string `json:"password" binding:"required,strongpwd"`
	ConfirmPassword string `json:"confirmPassword" binding:"required,eqfield=Password"`
}

type accountView struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	Phone       string `json:"phone,omitempty"`
	IsActivated bool   `json:"isActivated"`
}

func (h *AccountHandler) Register(c *gin.Context) {
	var req registerRequest
	if !h.bind(c, &req) {
		return
	}
	msg, err := h.Svc.Register(c.Request.Context(), application.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     entity.Role(req.Role),
		Phone:    req.Phone,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success[any](c, http.StatusCreated, nil, msg, nil)
}

// Activate consumes the token carried in the activation link path.
func (h *AccountHandler) Activate(c *gin.Context) {
	msg, err := h.Svc.Activate(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, msg, nil)
}

func (h *AccountHandler) ResendActivation(c *gin.Context) {
	var req emailRequest
	if !h.bind(c, &req) {
		return
	}
	msg, err := h.Svc.ResendActivation(c.Request.Context(), req.Email)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, msg, nil)
}

func (h *AccountHandler) Login(c *gin.Context) {
	var req loginRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.Cookies.SetAccess(c, res.Token, res.ExpiresAt)
	response.Success(c, http.StatusOK, gin.H{
		"token":   res.Token,
		"account": toView(res.Account),
	}, "login successful", gin.H{"expires_at": res.ExpiresAt})
}

func (h *AccountHandler) ForgotPassword(c *gin.Context) {
	var req emailRequest
	if !h.bind(c, &req) {
		return
	}
	msg, err := h.Svc.RequestPasswordReset(c.Request.Context(), req.Email)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, msg, nil)
}

func (h *AccountHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !h.bind(c, &req) {
		return
	}
	msg, err := h.Svc.ResetPassword(c.Request.Context(), req.Token, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, msg, nil)
}

// Search queries the activated-account directory.
func (h *AccountHandler) Search(c *gin.Context) {
	if h.Directory == nil {
		response.Error[any](c, http.StatusServiceUnavailable, "search unavailable", nil)
		return
	}
	q := c.Query("q")
	if q == "" {
		response.Error[any](c, http.StatusUnprocessableEntity, "invalid query", map[string]string{"q": "is required"})
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	docs, err := h.Directory.Search(c.Request.Context(), q, size)
	if err != nil {
		h.Logger.WithError(err).Error("account search failed")
		response.Error[any](c, http.StatusBadGateway, "search failed", nil)
		return
	}
	response.Success(c, http.StatusOK, docs, "ok", gin.H{"count": len(docs)})
}

func (h *AccountHandler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error[any](c, http.StatusUnprocessableEntity, "invalid payload", validation.ToDetails(err))
		return false
	}
	return true
}

var kindStatus = map[apperr.Kind]int{
	apperr.KindConflict:     http.StatusConflict,
	apperr.KindUnauthorized: http.StatusUnauthorized,
	apperr.KindForbidden:    http.StatusForbidden,
	apperr.KindNotFound:     http.StatusNotFound,
	apperr.KindExpired:      http.StatusGone,
	apperr.KindRateLimited:  http.StatusTooManyRequests,
	apperr.KindValidation:   http.StatusUnprocessableEntity,
	apperr.KindInternal:     http.StatusInternalServerError,
}

// StatusOf maps an engine error kind to its HTTP status.
func StatusOf(err error) int {
	if st, ok := kindStatus[apperr.KindOf(err)]; ok {
		return st
	}
	return http.StatusInternalServerError
}

func (h *AccountHandler) fail(c *gin.Context, err error) {
	status := StatusOf(err)
	if status >= http.StatusInternalServerError {
		h.Logger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	response.Error[any](c, status, apperr.MessageOf(err), gin.H{"kind": apperr.KindOf(err)})
}

func toView(a *entity.Account) *accountView {
	if a == nil {
		return nil
	}
	return &accountView{
		ID:          a.ID,
		Username:    a.Username,
		Email:       a.Email,
		Role:        string(a.Role),
		Phone:       a.Phone,
		IsActivated: a.IsActivated,
	}
}
