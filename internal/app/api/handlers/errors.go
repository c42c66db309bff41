package handlers

import (
	"errors"
	"net/http"

	"github.com/fatflowers/entitlement/internal/platform/billing"
	"github.com/fatflowers/entitlement/pkg/apperr"
	"github.com/fatflowers/entitlement/pkg/logctx"
	"github.com/fatflowers/entitlement/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// errorCode maps a service error to the envelope code returned to callers.
func errorCode(err error) response.APIResponseCode {
	switch {
	case apperr.IsValidation(err), errors.Is(err, billing.ErrInvalidEvent):
		return response.APIResponseCodeBadRequest
	case apperr.IsNotFound(err):
		return response.APIResponseCodeNotFound
	case apperr.IsConflict(err):
		return response.APIResponseCodeConflict
	case apperr.IsDenial(err):
		return response.APIResponseCodeDenied
	default:
		return response.APIResponseCodeError
	}
}

// replyError writes err in the standard envelope. Denials carry their
// machine-readable reason; internal errors are logged.
func replyError(c *gin.Context, base *zap.SugaredLogger, err error) {
	code := errorCode(err)
	detail := response.ErrorDetail{Reason: string(apperr.ReasonOf(err)), Error: err.Error()}
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		detail.Field = ve.Field
	}
	c.Set(response.CodeContextKey, code)
	c.Set(response.ReasonContextKey, detail.Reason)
	log := logctx.FromGin(c, base)
	if code == response.APIResponseCodeError {
		log.Errorw("request failed", "path", c.FullPath(), "error", err)
	} else {
		log.Infow("request denied", "path", c.FullPath(), "code", code, "reason", detail.Reason, "error", err)
	}
	c.JSON(http.StatusOK, response.ErrorT(code, detail))
}

// badRequest reports a body or parameter that failed binding.
func badRequest(c *gin.Context, err error) {
	c.Set(response.CodeContextKey, response.APIResponseCodeBadRequest)
	c.Set(response.ReasonContextKey, string(apperr.ReasonValidation))
	c.JSON(http.StatusOK, response.ErrorT(response.APIResponseCodeBadRequest, response.ErrorDetail{
		Reason: string(apperr.ReasonValidation),
		Error:  err.Error(),
	}))
}
