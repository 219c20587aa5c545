// Package testcontext provides a context with a working o11y provider, so tests get logs.
package testcontext

import (
	"context"

	"github.com/circleci/ex-demos/config/o11y"
)

// ctx is built once, the beeline underneath the provider is a process wide singleton.
var ctx = newContext()

func Background() context.Context {
	return ctx
}

func newContext() context.Context {
	cx, _, err := o11y.Setup(context.Background(), o11y.Config{
		Service: "test-service",
		Version: "dev",
		Format:  "color",
	})
	if err != nil {
		panic(err)
	}
	return cx
}
