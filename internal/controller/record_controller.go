package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tintun2602/eduwallet-sub000/internal/service"
	"github.com/tintun2602/eduwallet-sub000/pkg/models/record"
)

// A RecordController serves the holder's record snapshot. It implements the interface `Controller`.
type RecordController struct {
	GroupName string
	Registry  *service.SessionRegistry
	Resolver  *service.CounterpartyResolver
}

// RecordView is the record snapshot with results grouped for presentation.
type RecordView struct {
	RecordAddress    string                         `json:"recordAddress"`
	Profile          record.Profile                 `json:"profile"`
	Results          []record.Result                `json:"results"`
	Groups           []service.CounterpartyGroup    `json:"groups"`
	Counterparties   map[string]record.Counterparty `json:"counterparties"`
	EvaluatedCredits float64                        `json:"evaluatedCredits"`
}

// GetGroupName returns the group name.
func (c *RecordController) GetGroupName() string {
	return c.GroupName
}

// GetEndpointMap implements part of the interface `Controller`. It returns the API endpoints and handlers which are defined and managed by RecordController.
func (c *RecordController) GetEndpointMap() EndpointMap {
	auth := requireSession(c.Registry)

	return EndpointMap{
		urlMethodPair{"", "GET"}:         []gin.HandlerFunc{auth, c.handleGetRecord},
		urlMethodPair{"programs", "GET"}: []gin.HandlerFunc{auth, c.handleGetPrograms},
	}
}

func (rc *RecordController) handleGetRecord(c *gin.Context) {
	session := sessionFrom(c)
	snapshot := session.Snapshot()
	groups := service.GroupByCounterparty(snapshot.Results)

	addresses := make([]string, 0, len(groups))
	for _, g := range groups {
		addresses = append(addresses, g.Counterparty)
	}

	c.JSON(http.StatusOK, &RecordView{
		RecordAddress:    snapshot.RecordAddress,
		Profile:          snapshot.Profile,
		Results:          snapshot.Results,
		Groups:           groups,
		Counterparties:   rc.Resolver.ResolveAll(c.Request.Context(), session.Address(), addresses),
		EvaluatedCredits: service.EvaluatedCredits(snapshot.Results),
	})
}

func (rc *RecordController) handleGetPrograms(c *gin.Context) {
	pel := &ParameterErrorList{}
	counterparty := pel.AppendIfEmptyOrBlankSpaces(c.Query("counterparty"), "counterparty cannot be empty.")
	if len(*pel) > 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, pel)
		return
	}

	session := sessionFrom(c)
	c.JSON(http.StatusOK, gin.H{
		"counterparty": counterparty,
		"name":         rc.Resolver.DisplayName(c.Request.Context(), session.Address(), counterparty),
		"programs":     service.OrderedGroupByProgram(session.Snapshot().Results, counterparty),
	})
}
