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

type AdminService interface {
	ListUsers(ctx context.Context, q domain.ListQuery) (service.Page[domain.Summary], error)
	GetUser(ctx context.Context, id string) (domain.Summary, error)
	CreateUser(ctx context.Context, actor domain.Actor, in service.NewUser) (domain.Summary, error)
	UpdateUser(ctx context.Context, actor domain.Actor, id string, patch domain.UserPatch) (domain.Summary, error)
	DeleteUser(ctx context.Context, actor domain.Actor, id string) error
	Suspend(ctx context.Context, actor domain.Actor, id string) (domain.Summary, error)
	Unsuspend(ctx context.Context, actor domain.Actor, id string) (domain.Summary, error)
	ListLogs(ctx context.Context, offset, limit int) (service.Page[domain.AdminLog], error)
	Statistics(ctx context.Context) (domain.Statistics, error)
}

// AdminHandler serves /admin/*; the group it mounts on already requires an
// admin session.
type AdminHandler struct {
	svc AdminService
	log *zap.Logger
}

func NewAdminHandler(svc AdminService, l *zap.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, log: l}
}

type listUsersQ struct {
	Offset int    `form:"offset,default=0"`
	Limit  int    `form:"limit,default=20"`
	Q      string `form:"q"`
	Role   string `form:"role" binding:"omitempty,role"`
}

type pageQ struct {
	Offset int `form:"offset,default=0"`
	Limit  int `form:"limit,default=20"`
}

type createUserReq struct {
	Name     string `json:"name"     binding:"required,max=64"`
	Email    string `json:"email"    binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=72"`
	Role     string `json:"role"     binding:"omitempty,role"`
}

type updateUserReq struct {
	Name  *string `json:"name"  binding:"omitempty,max=64"`
	Email *string `json:"email" binding:"omitempty,email,max=255"`
	Role  *string `json:"role"  binding:"omitempty,role"`
}

func (r updateUserReq) patch() domain.UserPatch {
	p := domain.UserPatch{Name: r.Name, Email: r.Email}
	if r.Role != nil {
		role := domain.Role(*r.Role)
		p.Role = &role
	}
	return p
}

func (h *AdminHandler) MountAdmin(g *gin.RouterGroup) {
	e := ez.New(g, h.log)

	ez.RegisterAction(e, ez.Action[listUsersQ, service.Page[domain.Summary]]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *listUsersQ) (service.Page[domain.Summary], error) {
			role, _ := domain.ParseRole(in.Role)
			return h.svc.ListUsers(c.Request.Context(), domain.ListQuery{
				Offset: in.Offset, Limit: in.Limit, Search: in.Q, Role: role,
			})
		},
	})
	ez.RegisterAction(e, ez.Action[createUserReq, domain.Summary]{
		Method: http.MethodPost,
		Path:   "/users",
		Binder: ez.BindJSON,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *createUserReq) (domain.Summary, error) {
			role, _ := domain.ParseRole(in.Role)
			return h.svc.CreateUser(c.Request.Context(), mdw.Actor(c), service.NewUser{
				Name: in.Name, Email: in.Email, Password: in.Password, Role: role,
			})
		},
	})
	ez.RegisterAction(e, ez.Action[struct{}, domain.Summary]{
		Method: http.MethodGet,
		Path:   "/users/:id",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (domain.Summary, error) {
			return h.svc.GetUser(c.Request.Context(), c.Param("id"))
		},
	})
	ez.RegisterAction(e, ez.Action[updateUserReq, domain.Summary]{
		Method: http.MethodPut,
		Path:   "/users/:id",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *updateUserReq) (domain.Summary, error) {
			return h.svc.UpdateUser(c.Request.Context(), mdw.Actor(c), c.Param("id"), in.patch())
		},
	})
	ez.RegisterAction(e, ez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/users/:id",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			id := c.Param("id")
			if err := h.svc.DeleteUser(c.Request.Context(), mdw.Actor(c), id); err != nil {
				return nil, err
			}
			return gin.H{"id": id}, nil
		},
	})
	ez.RegisterAction(e, ez.Action[struct{}, domain.Summary]{
		Method: http.MethodPut,
		Path:   "/users/:id/suspend",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (domain.Summary, error) {
			return h.svc.Suspend(c.Request.Context(), mdw.Actor(c), c.Param("id"))
		},
	})
	ez.RegisterAction(e, ez.Action[struct{}, domain.Summary]{
		Method: http.MethodPut,
		Path:   "/users/:id/unsuspend",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (domain.Summary, error) {
			return h.svc.Unsuspend(c.Request.Context(), mdw.Actor(c), c.Param("id"))
		},
	})
	ez.RegisterAction(e, ez.Action[pageQ, service.Page[domain.AdminLog]]{
		Method: http.MethodGet,
		Path:   "/logs",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *pageQ) (service.Page[domain.AdminLog], error) {
			return h.svc.ListLogs(c.Request.Context(), in.Offset, in.Limit)
		},
	})
	ez.RegisterAction(e, ez.Action[struct{}, domain.Statistics]{
		Method: http.MethodGet,
		Path:   "/statistics",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (domain.Statistics, error) {
			return h.svc.Statistics(c.Request.Context())
		},
	})
}
