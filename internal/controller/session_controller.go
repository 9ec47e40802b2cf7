package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tintun2602/eduwallet-sub000/internal/service"
)

// A SessionController logs holders in and out. It implements the interface `Controller`.
type SessionController struct {
	GroupName string
	Registry  *service.SessionRegistry
}

// SessionCreationInfo is returned to the client when a session is created.
type SessionCreationInfo struct {
	SessionID     string `json:"sessionId"`
	Address       string `json:"address"`
	RecordAddress string `json:"recordAddress"`
}

// GetGroupName returns the group name.
func (c *SessionController) GetGroupName() string {
	return c.GroupName
}

// GetEndpointMap implements part of the interface `Controller`. It returns the API endpoints and handlers which are defined and managed by SessionController.
func (c *SessionController) GetEndpointMap() EndpointMap {
	return EndpointMap{
		urlMethodPair{"", "POST"}:      []gin.HandlerFunc{c.handleCreateSession},
		urlMethodPair{":id", "DELETE"}: []gin.HandlerFunc{c.handleDeleteSession},
	}
}

func (sc *SessionController) handleCreateSession(c *gin.Context) {
	pel := &ParameterErrorList{}
	// Credentials are derived from as typed, the same as on the command line.
	identifier := pel.AppendIfEmpty(c.PostForm("identifier"), "identifier cannot be empty.")
	secret := pel.AppendIfEmpty(c.PostForm("secret"), "secret cannot be empty.")

	if len(*pel) > 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, pel)
		return
	}

	session, err := sc.Registry.Start(c.Request.Context(), identifier, secret)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, &SessionCreationInfo{
		SessionID:     session.ID,
		Address:       session.Address(),
		RecordAddress: session.RecordAddress(),
	})
}

func (sc *SessionController) handleDeleteSession(c *gin.Context) {
	if err := sc.Registry.End(c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}

	c.Writer.WriteHeader(http.StatusNoContent)
}
