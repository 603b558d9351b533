package httpapi

import (
	"errors"
	"net/http"

	"dkpauction/domain/entities"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Request-level codes that never come out of the domain
const (
	codeBadRequest      = "BAD_REQUEST"
	codeUnauthenticated = "UNAUTHENTICATED"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// MapErrorToHTTP maps a domain error to its status and wire code
func MapErrorToHTTP(err error) (int, string) {
	code := entities.ErrorCode(err)
	switch {
	case errors.Is(err, entities.ErrAuctionNotFound), errors.Is(err, entities.ErrAccountNotFound):
		return http.StatusNotFound, code
	case errors.Is(err, entities.ErrBidTooLow), errors.Is(err, entities.ErrAuctionNotActive):
		return http.StatusConflict, code
	case errors.Is(err, entities.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity, code
	case errors.Is(err, entities.ErrInvalidAmount), errors.Is(err, entities.ErrInvalidAuction):
		return http.StatusBadRequest, code
	default:
		return http.StatusInternalServerError, entities.CodeInternal
	}
}

// writeError renders err. Internal failures are logged and their text hidden.
func writeError(c *gin.Context, handler string, err error) {
	status, code := MapErrorToHTTP(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{
			"handler": handler,
			"path":    c.FullPath(),
		}).Error("Request failed")
		message = "internal server error"
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message, Code: code})
}

func writeBadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: message, Code: codeBadRequest})
}
