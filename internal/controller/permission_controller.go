package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tintun2602/eduwallet-sub000/internal/service"
	"github.com/tintun2602/eduwallet-sub000/pkg/models/permission"
	"github.com/tintun2602/eduwallet-sub000/pkg/models/record"
)

// A PermissionController exposes the holder's permission ledger. It implements the interface `Controller`.
type PermissionController struct {
	GroupName string
	Registry  *service.SessionRegistry
	Resolver  *service.CounterpartyResolver
}

// PermissionView is the partitioned permissions plus the profiles of the counterparties they name.
type PermissionView struct {
	permission.Sets
	Counterparties map[string]record.Counterparty `json:"counterparties"`
}

// TransitionInfo is returned for an accepted approve or revoke. Status is "pending" unless the client asked to wait.
type TransitionInfo struct {
	TransitionID string `json:"transitionId"`
	Status       string `json:"status"`
}

// GetGroupName returns the group name.
func (c *PermissionController) GetGroupName() string {
	return c.GroupName
}

// GetEndpointMap implements part of the interface `Controller`. It returns the API endpoints and handlers which are defined and managed by PermissionController.
func (c *PermissionController) GetEndpointMap() EndpointMap {
	auth := requireSession(c.Registry)

	return EndpointMap{
		urlMethodPair{"", "GET"}:                          []gin.HandlerFunc{auth, c.handleGetPermissions},
		urlMethodPair{"approve", "POST"}:                  []gin.HandlerFunc{auth, c.handleApprove},
		urlMethodPair{"revoke", "POST"}:                   []gin.HandlerFunc{auth, c.handleRevoke},
		urlMethodPair{"transitions", "GET"}:               []gin.HandlerFunc{auth, c.handleGetTransitions},
		urlMethodPair{"transitions/:id/rollback", "POST"}: []gin.HandlerFunc{auth, c.handleRollback},
	}
}

func (pc *PermissionController) handleGetPermissions(c *gin.Context) {
	pel := &ParameterErrorList{}
	reload := pel.AppendIfNotBool(c.Query("reload"), "reload must be a bool.")
	if len(*pel) > 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, pel)
		return
	}

	session := sessionFrom(c)
	ledger := session.Permissions()
	if reload {
		ledger.Invalidate()
	}

	sets, err := ledger.LoadAll(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	addresses := make([]string, 0, sets.Len())
	for _, set := range [][]permission.Permission{sets.Requests, sets.Read, sets.Write} {
		for _, p := range set {
			addresses = append(addresses, p.Counterparty)
		}
	}

	c.JSON(http.StatusOK, &PermissionView{
		Sets:           sets,
		Counterparties: pc.Resolver.ResolveAll(c.Request.Context(), session.Address(), addresses),
	})
}

func (pc *PermissionController) handleApprove(c *gin.Context) {
	pel := &ParameterErrorList{}
	counterparty := pel.AppendIfEmptyOrBlankSpaces(c.PostForm("counterparty"), "counterparty cannot be empty.")
	capability := pel.AppendIfNotCapability(c.PostForm("capability"), "capability must be 'read' or 'write'.")
	wait := pel.AppendIfNotBool(c.Query("wait"), "wait must be a bool.")
	if len(*pel) > 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, pel)
		return
	}

	session := sessionFrom(c)
	tr, err := session.Permissions().Approve(c.Request.Context(), permission.NewRequest(counterparty, capability))
	pc.respondTransition(c, tr, err, wait)
}

func (pc *PermissionController) handleRevoke(c *gin.Context) {
	pel := &ParameterErrorList{}
	counterparty := pel.AppendIfEmptyOrBlankSpaces(c.PostForm("counterparty"), "counterparty cannot be empty.")
	capability := pel.AppendIfNotCapability(c.PostForm("capability"), "capability must be 'read' or 'write'.")
	phase := permission.Granted
	if phaseStr := c.PostForm("phase"); phaseStr != "" {
		phase = pel.AppendIfNotPhase(phaseStr, "phase must be 'requested' or 'granted'.")
	}
	wait := pel.AppendIfNotBool(c.Query("wait"), "wait must be a bool.")
	if len(*pel) > 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, pel)
		return
	}

	session := sessionFrom(c)
	p := permission.Permission{Counterparty: counterparty, Capability: capability, Phase: phase}
	tr, err := session.Permissions().Revoke(c.Request.Context(), p)
	pc.respondTransition(c, tr, err, wait)
}

// respondTransition answers 202 with the pending transition, or, when waiting, 200 once it is confirmed.
func (pc *PermissionController) respondTransition(c *gin.Context, tr *service.Transition, err error, wait bool) {
	if err != nil {
		abortWithError(c, err)
		return
	}

	if !wait {
		c.JSON(http.StatusAccepted, &TransitionInfo{TransitionID: tr.ID, Status: tr.Status().String()})
		return
	}

	if err = tr.Wait(c.Request.Context()); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, &TransitionInfo{TransitionID: tr.ID, Status: tr.Status().String()})
}

func (pc *PermissionController) handleGetTransitions(c *gin.Context) {
	c.JSON(http.StatusOK, sessionFrom(c).Permissions().Transitions())
}

func (pc *PermissionController) handleRollback(c *gin.Context) {
	if err := sessionFrom(c).Permissions().Rollback(c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}

	c.Writer.WriteHeader(http.StatusNoContent)
}
