// Package responder answers every request with the same plain text greeting.
package responder

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/circleci/ex-demos/httpserver/ginrouter"
)

const greeting = "Hello from Node.js running in Kubernetes!\n"

type API struct {
	router *gin.Engine
}

type Options struct{}

func New(ctx context.Context, _ Options) *API {
	r := ginrouter.Default(ctx, "responder")
	// with no routes registered every method and path lands here
	r.NoRoute(greet)
	r.HandleMethodNotAllowed = false

	return &API{router: r}
}

func (a *API) Handler() http.Handler {
	return a.router
}

func greet(c *gin.Context) {
	c.Data(http.StatusOK, "text/plain", []byte(greeting))
}
