package resolver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/qanda/qanda/backend/go-services/pkg/middleware"
)

// NewRouter returns a gin engine serving /health and the GraphQL endpoint.
// Extra middleware runs after panic recovery.
func NewRouter(h *Handler, ver middleware.Verifier, mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery())
	r.Use(mw...)
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	h.Register(r, ver)
	return r
}
