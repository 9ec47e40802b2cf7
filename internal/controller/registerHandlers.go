package controller

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tintun2602/eduwallet-sub000/internal/service"
)

type urlMethodPair struct {
	urlSuffix, method string
}

// EndpointMap is a map containing endpoints and the corresponding handlers that are defined and managed by a controller.
//
// Each entry in the map is organized in the following manner.
//
//	(urlSuffix, method): handler_function_list
//
// Thus it takes a URL suffix and an HTTP method as the key to perform a lookup.
type EndpointMap map[urlMethodPair][]gin.HandlerFunc

// A Controller must contain an endpoint map.
type Controller interface {
	GetGroupName() string
	GetEndpointMap() EndpointMap
}

var supportedMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodDelete:  true,
	http.MethodPatch:   true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

// RegisterHandlers registers the endpoint handlers in the controller to the router group.
func RegisterHandlers(r *gin.RouterGroup, c Controller) error {
	group := r.Group(c.GetGroupName())

	for pair, handlers := range c.GetEndpointMap() {
		method := strings.ToUpper(pair.method)
		if !supportedMethods[method] {
			return fmt.Errorf("unsupported HTTP method '%v' for '%v%v'", pair.method, c.GetGroupName(), pair.urlSuffix)
		}
		group.Handle(method, pair.urlSuffix, handlers...)
	}

	return nil
}

// NewRouter builds the HTTP engine: the wallet API under `/api/v1` and Prometheus metrics under `/metrics`.
//
// Parameters:
//
//	the session registry
//	the counterparty resolver
//
// Returns:
//
//	the router
func NewRouter(registry *service.SessionRegistry, resolver *service.CounterpartyResolver) (*gin.Engine, error) {
	router := gin.New()
	router.Use(gin.Recovery())

	apiv1Group := router.Group("/api/v1")
	controllers := []Controller{
		&PingPongController{Registry: registry},
		&SessionController{GroupName: "/session", Registry: registry},
		&RecordController{GroupName: "/records", Registry: registry, Resolver: resolver},
		&PermissionController{GroupName: "/permissions", Registry: registry, Resolver: resolver},
	}
	for _, c := range controllers {
		if err := RegisterHandlers(apiv1Group, c); err != nil {
			return nil, err
		}
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router, nil
}
