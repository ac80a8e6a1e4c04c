package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domain "github.com/HamezGuy/libreclinicaapi-sub001/internal/domain/randomization"
)

// StatusFor maps a coded domain error onto an HTTP status.
func StatusFor(code domain.ErrorCode) int {
	switch code {
	case domain.CodeValidation:
		return http.StatusBadRequest
	case domain.CodeConfig:
		return http.StatusUnprocessableEntity
	case domain.CodeNotFound, domain.CodeNoActiveScheme:
		return http.StatusNotFound
	case domain.CodeLocked, domain.CodeDuplicate, domain.CodeExhausted,
		domain.CodeActiveSchemeExists, domain.CodeNoList, domain.CodeConflict:
		return http.StatusConflict
	case domain.CodeRetryable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondDomainError writes the error envelope for err. Internal failures
// never echo their cause to the caller.
func RespondDomainError(c *gin.Context, err error) {
	code := domain.CodeOf(err)
	if code == "" {
		code = domain.CodeInternal
	}
	status := StatusFor(code)
	if status >= http.StatusInternalServerError {
		msg := "internal error"
		if code == domain.CodeRetryable {
			msg = "temporarily unavailable, retry the request"
		}
		RespondError(c, status, string(code), errors.New(msg))
		return
	}
	RespondError(c, status, string(code), errors.New(domain.MessageOf(err)))
}
