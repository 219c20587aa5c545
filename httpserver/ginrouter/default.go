// Package ginrouter builds the gin engine every demo API and the admin server share.
package ginrouter

import (
	"context"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/circleci/ex-demos/o11y"
	"github.com/circleci/ex-demos/o11y/wrappers/o11ygin"
)

var once sync.Once

// Default returns an engine with request tracing, panic recovery and client
// cancellation handling. The o11y provider is taken from ctx.
func Default(ctx context.Context, serverName string) *gin.Engine {
	once.Do(func() {
		gin.SetMode(gin.ReleaseMode)
	})

	r := gin.New()
	r.Use(
		o11ygin.Middleware(o11y.FromContext(ctx), serverName),
		o11ygin.Recovery(),
		o11ygin.ClientCancelled(),
	)
	r.UseRawPath = true

	return r
}
