package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tintun2602/eduwallet-sub000/internal/service"
	"github.com/tintun2602/eduwallet-sub000/pkg/errorcode"
)

const (
	// SessionHeader carries the session ID returned by `POST /session`.
	SessionHeader = "X-Session-ID"
	sessionKey    = "session"
)

// abortWithError maps an error from the service layer to a status code and aborts with a general response.
func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	cause := errors.Cause(err)

	switch {
	case cause == errorcode.ErrorAuthentication:
		status = http.StatusUnauthorized
	case cause == errorcode.ErrorIllegalTransition, cause == errorcode.ErrorTransitionInFlight:
		status = http.StatusConflict
	case cause == errorcode.ErrorInvalidCapability, service.IsBadRequest(cause), errorcode.IsDerivationError(err):
		status = http.StatusBadRequest
	case cause == errorcode.ErrorNotFound, cause == errorcode.ErrorUnknownCounterparty:
		status = http.StatusNotFound
	case cause == errorcode.ErrorForbidden:
		status = http.StatusForbidden
	case cause == errorcode.ErrorNotImplemented:
		status = http.StatusNotImplemented
	case errorcode.IsLedgerSubmissionFailure(err):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}

	gr := &GeneralResponse{}
	gr.NewFromMsg(err.Error())
	c.AbortWithStatusJSON(status, gr.ToMap())
}

// requireSession looks up the session named by the `X-Session-ID` header (or a bearer token) and stores it in the
// context.
func requireSession(registry *service.SessionRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(SessionHeader)
		if id == "" {
			id = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		}

		session, err := registry.Get(strings.TrimSpace(id))
		if err != nil {
			gr := &GeneralResponse{}
			gr.NewFromMsg("session is missing or has ended")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gr.ToMap())
			return
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

func sessionFrom(c *gin.Context) *service.Session {
	return c.MustGet(sessionKey).(*service.Session)
}
