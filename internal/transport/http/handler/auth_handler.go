package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"userhub/internal/domain"
	"userhub/internal/service"
	"userhub/internal/transport/http/ez"
	mdw "userhub/internal/transport/http/middleware"
)

type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*service.Session, error)
	Login(ctx context.Context, email, password string) (*service.Session, error)
	Refresh(ctx context.Context, token string) (*service.Session, error)
	ChangePassword(ctx context.Context, uid, current, next string) (*service.Session, error)
	DeleteAccount(ctx context.Context, uid, password string) error
	Profile(ctx context.Context, uid string) (domain.Summary, error)
	LogoutAll(ctx context.Context, uid string) error
}

// AuthHandler serves /auth/*.
type AuthHandler struct {
	svc AuthService
	log *zap.Logger
}

func NewAuthHandler(svc AuthService, l *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, log: l}
}

type registerReq struct {
	Name     string `json:"name"     binding:"required,max=64"`
	Email    string `json:"email"    binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type loginReq struct {
	Email    string `json:"email"    binding:"required"`
	Password string `json:"password" binding:"required"`
}

type changePasswordReq struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword"     binding:"required,min=6,max=72"`
}

type deleteAccountReq struct {
	Password string `json:"password" binding:"required"`
}

// MountAPI registers the open endpoints on public and the session-bound ones
// on protected.
func (h *AuthHandler) MountAPI(public, protected *gin.RouterGroup) {
	pub := ez.New(public, h.log)
	ez.RegisterAction(pub, ez.Action[registerReq, *service.Session]{
		Method: http.MethodPost,
		Path:   "/register",
		Binder: ez.BindJSON,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *registerReq) (*service.Session, error) {
			return h.svc.Register(c.Request.Context(), in.Name, in.Email, in.Password)
		},
	})
	ez.RegisterAction(pub, ez.Action[loginReq, *service.Session]{
		Method: http.MethodPost,
		Path:   "/login",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *loginReq) (*service.Session, error) {
			return h.svc.Login(c.Request.Context(), in.Email, in.Password)
		},
	})
	// The bearer here may be expired, so it bypasses Authenticate.
	ez.RegisterAction(pub, ez.Action[struct{}, *service.Session]{
		Method: http.MethodPost,
		Path:   "/refresh",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*service.Session, error) {
			tok, ok := mdw.BearerToken(c)
			if !ok {
				return nil, domain.ErrUnauthenticated
			}
			return h.svc.Refresh(c.Request.Context(), tok)
		},
	})

	prot := ez.New(protected, h.log)
	ez.RegisterAction(prot, ez.Action[changePasswordReq, *service.Session]{
		Method: http.MethodPut,
		Path:   "/change-password",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *changePasswordReq) (*service.Session, error) {
			return h.svc.ChangePassword(c.Request.Context(), mdw.UserID(c), in.CurrentPassword, in.NewPassword)
		},
	})
	ez.RegisterAction(prot, ez.Action[deleteAccountReq, gin.H]{
		Method: http.MethodDelete,
		Path:   "/delete-account",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *deleteAccountReq) (gin.H, error) {
			uid := mdw.UserID(c)
			if err := h.svc.DeleteAccount(c.Request.Context(), uid, in.Password); err != nil {
				return nil, err
			}
			return gin.H{"id": uid}, nil
		},
	})
	ez.RegisterAction(prot, ez.Action[struct{}, domain.Summary]{
		Method: http.MethodGet,
		Path:   "/profile",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (domain.Summary, error) {
			return h.svc.Profile(c.Request.Context(), mdw.UserID(c))
		},
	})
	ez.RegisterAction(prot, ez.Action[struct{}, gin.H]{
		Method: http.MethodPost,
		Path:   "/logout-all",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			if err := h.svc.LogoutAll(c.Request.Context(), mdw.UserID(c)); err != nil {
				return nil, err
			}
			return gin.H{"revoked": true}, nil
		},
	})
}
