package main

import (
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"fishmarket/internal/guestcart"
)

func registeredRoutes(t *testing.T) map[string]bool {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	registerRoutes(r, nil, guestcart.NewMemoryStore())

	routes := map[string]bool{}
	for _, info := range r.Routes() {
		routes[info.Method+" "+info.Path] = true
	}
	return routes
}

func TestAdminRoutePaths(t *testing.T) {
	routes := registeredRoutes(t)

	for _, want := range []string{
		"GET /admin/orders",
		"PUT /admin/orders/:orderId/status",
		"GET /admin/stats",
		"GET /admin/products",
		"POST /admin/products",
		"PUT /admin/products/:id",
		"DELETE /admin/products/:id",
	} {
		if !routes[want] {
			t.Errorf("missing route %s", want)
		}
	}

	for path := range routes {
		if strings.Contains(path, "/admin/api/") {
			t.Errorf("stale admin prefix on %s", path)
		}
	}
}

func TestCustomerRoutePaths(t *testing.T) {
	routes := registeredRoutes(t)

	for _, want := range []string{
		"POST /orders/create",
		"GET /orders",
		"GET /orders/:orderId",
		"PUT /orders/:orderId/cancel",
		"POST /cart/add",
		"GET /cart",
		"POST /guest/cart/add",
	} {
		if !routes[want] {
			t.Errorf("missing route %s", want)
		}
	}
}
