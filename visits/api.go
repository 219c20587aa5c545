package visits

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/circleci/ex-demos/httpserver/ginrouter"
)

type Incrementer interface {
	Incr(ctx context.Context) (int64, error)
}

type API struct {
	router  *gin.Engine
	counter Incrementer
}

type Options struct {
	Counter Incrementer
}

func New(ctx context.Context, opts Options) *API {
	r := ginrouter.Default(ctx, "visits")
	a := &API{
		router:  r,
		counter: opts.Counter,
	}

	r.GET("/", a.getVisits)

	return a
}

func (a *API) Handler() http.Handler {
	return a.router
}

func (a *API) getVisits(c *gin.Context) {
	n, err := a.counter.Incr(c.Request.Context())
	switch {
	case errors.Is(err, ErrUnavailable):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{})
		return
	case err != nil:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{})
		return
	}

	c.String(http.StatusOK, "Hello from Flask + Redis! Visit count: %d", n)
}
