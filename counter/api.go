// Package counter serves the persisted counter: each GET / stores an item and replies
// with how many items are stored.
package counter

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/circleci/ex-demos/httpserver/ginrouter"
	"github.com/circleci/ex-demos/items"
	"github.com/circleci/ex-demos/o11y"
)

type API struct {
	router *gin.Engine
	store  items.Store
}

type Options struct {
	Store items.Store
}

func New(ctx context.Context, opts Options) *API {
	r := ginrouter.Default(ctx, "counter")
	a := &API{
		router: r,
		store:  opts.Store,
	}

	r.GET("/", a.getCount)

	return a
}

func (a *API) Handler() http.Handler {
	return a.router
}

func (a *API) getCount(c *gin.Context) {
	ctx := c.Request.Context()

	n, err := a.addAndCount(ctx)
	if err != nil {
		c.AbortWithStatusJSON(statusFor(err), gin.H{})
		return
	}

	c.String(http.StatusOK, "Hello! Total items in DB: %d", n)
}

// addAndCount only counts once the add has succeeded, so a failed request never reports
// a count it did not contribute to.
func (a *API) addAndCount(ctx context.Context) (n int64, err error) {
	if err := a.store.Add(ctx, items.Item{Name: items.DefaultName}); err != nil {
		return 0, fmt.Errorf("add item: %w", err)
	}

	n, err = a.store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	o11y.AddField(ctx, "count", n)
	return n, nil
}

func statusFor(err error) int {
	if errors.Is(err, items.ErrUnavailable) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
