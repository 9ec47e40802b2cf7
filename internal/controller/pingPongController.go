package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tintun2602/eduwallet-sub000/internal/service"
)

// PingPongController serves liveness checks.
type PingPongController struct {
	GroupName string
	Registry  *service.SessionRegistry
}

// HealthInfo is the body of the health endpoint.
type HealthInfo struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

// GetGroupName returns the group name
func (ppc *PingPongController) GetGroupName() string {
	return ppc.GroupName
}

// GetEndpointMap implements the interface `Controller` and returns the API endpoints and handlers defined and managed by PingPongController.
func (ppc *PingPongController) GetEndpointMap() EndpointMap {
	return EndpointMap{
		urlMethodPair{"/ping", "GET"}: []gin.HandlerFunc{
			func(c *gin.Context) { c.String(http.StatusOK, "pong") },
		},
		urlMethodPair{"/health", "GET"}: []gin.HandlerFunc{
			ppc.handleHealth,
		},
	}
}

func (ppc *PingPongController) handleHealth(c *gin.Context) {
	info := HealthInfo{Status: "ok"}
	if ppc.Registry != nil {
		info.Sessions = ppc.Registry.Len()
	}

	c.JSON(http.StatusOK, info)
}
