package ez

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"userhub/internal/domain"
	resp "userhub/internal/transport/http/response"
	"userhub/pkg/utils"
)

const internalMsg = "internal error"

// StatusOf maps a service error to its HTTP status and client-safe message.
func StatusOf(err error) (int, string) {
	var de *domain.Error
	if !errors.As(err, &de) {
		return http.StatusInternalServerError, internalMsg
	}
	switch de.Kind {
	case domain.KindValidation:
		return http.StatusBadRequest, de.Msg
	case domain.KindAuthentication:
		return http.StatusUnauthorized, de.Msg
	case domain.KindAuthorization:
		return http.StatusForbidden, de.Msg
	case domain.KindNotFound:
		return http.StatusNotFound, de.Msg
	case domain.KindConflict:
		return http.StatusConflict, de.Msg
	case domain.KindUnavailable:
		return http.StatusServiceUnavailable, de.Msg
	default:
		return http.StatusInternalServerError, internalMsg
	}
}

// Fail writes err as the response. A PartialError answers 207 with the
// committed result as data.
func Fail(c *gin.Context, l *zap.Logger, err error) {
	var pe *domain.PartialError
	if errors.As(err, &pe) {
		c.AbortWithStatusJSON(http.StatusMultiStatus,
			resp.Partial("change applied but audit log write failed", pe.Result))
		return
	}
	status, msg := StatusOf(err)
	if status >= http.StatusInternalServerError && l != nil {
		l.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(status, resp.Error(status, msg))
}

// BindFailed answers a request whose body or query did not bind.
func BindFailed(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, resp.Error(resp.CodeTooLarge, "request body too large"))
		return
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, resp.Error(resp.CodeBadRequest, utils.ValidationMessage(err)))
}
