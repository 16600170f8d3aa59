package resolver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/graphql-go/graphql"
	"github.com/qanda/qanda/backend/go-services/pkg/middleware"
)

// Request is the JSON body accepted by POST /graphql.
type Request struct {
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables"`
	OperationName string                 `json:"operationName"`
}

// Handler executes GraphQL requests against a schema.
type Handler struct {
	schema graphql.Schema
}

func NewHandler(schema graphql.Schema) *Handler {
	return &Handler{schema: schema}
}

// Register mounts POST /graphql behind bearer-token verification.
func (h *Handler) Register(r gin.IRouter, ver middleware.Verifier) {
	r.POST("/graphql", middleware.AuthMiddleware(ver), h.Execute)
}

// Execute runs one GraphQL request. Execution errors are reported in the
// result body with status 200.
func (h *Handler) Execute(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	if req.Query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "query is required"})
		return
	}
	res := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        c.Request.Context(),
	})
	c.JSON(http.StatusOK, res)
}
