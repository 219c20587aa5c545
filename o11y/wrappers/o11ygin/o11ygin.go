// Package o11ygin traces gin requests and turns handler panics into 500s.
package o11ygin

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/circleci/ex-demos/o11y"
)

const contextCancelledKey = "o11y_context_cancelled"

// StatusClientClosedRequest is recorded when the client went away before the response, as nginx does.
const StatusClientClosedRequest = 499

// Middleware starts a span for each request, continuing any trace propagated in the
// request headers, and records a handler timing metric when the request completes.
func Middleware(provider o11y.Provider, serverName string) gin.HandlerFunc {
	m := provider.MetricsProvider()
	return func(c *gin.Context) {
		before := time.Now()

		route := c.FullPath()
		if route == "" {
			route = "not-found"
		}

		ctx := o11y.WithProvider(c.Request.Context(), provider)
		ctx, span := startSpan(ctx, provider, c.Request, serverName, route)
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		for _, param := range c.Params {
			span.AddRawField("handler.vars."+param.Key, param.Value)
		}

		c.Header("X-Route", route)

		span.AddRawField("meta.type", "http_server")
		span.AddRawField("http.server_name", serverName)
		span.AddRawField("http.route", route)
		span.AddRawField("http.client_ip", c.ClientIP())
		span.AddRawField("http.method", c.Request.Method)
		span.AddRawField("http.url", c.Request.URL.String())
		span.AddRawField("http.host", c.Request.Host)
		span.AddRawField("http.user_agent", c.Request.UserAgent())
		span.AddRawField("http.request_content_length", c.Request.ContentLength)

		defer func() {
			status := c.Writer.Status()
			if c.GetBool(contextCancelledKey) {
				status = StatusClientClosedRequest
			}
			span.AddRawField("http.status_code", status)
			span.AddRawField("http.response_content_length", c.Writer.Size())

			if m != nil {
				_ = m.TimeInMilliseconds("handler",
					float64(time.Since(before).Nanoseconds())/1e6,
					[]string{
						"http.server_name:" + serverName,
						"http.method:" + c.Request.Method,
						"http.route:" + route,
						"http.status_code:" + strconv.Itoa(status),
					},
					1,
				)
			}
		}()

		c.Next()
	}
}

func startSpan(ctx context.Context, p o11y.Provider, r *http.Request, serverName, route string) (context.Context, o11y.Span) {
	name := "http-server " + serverName + ": " + r.Method + " " + route

	if p.GetSpan(ctx) == nil {
		ctx, span := p.Helpers().InjectPropagation(ctx, o11y.PropagationContextFromHeader(r.Header))
		span.AddRawField("name", name)
		return ctx, span
	}
	return o11y.StartSpan(ctx, name)
}

// ClientCancelled marks requests whose context was cancelled, so the middleware
// reports them as 499 rather than whatever the handler wrote. Errors recorded with
// c.Error are added to the span.
func ClientCancelled() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		defer func() {
			if errors.Is(ctx.Err(), context.Canceled) {
				c.Set(contextCancelledKey, true)
				return
			}
			if len(c.Errors) > 0 {
				o11y.AddField(ctx, "gin_internal_error", c.Errors.String())
			}
		}()
		c.Next()
	}
}

// Recovery aborts a panicking request with a 500 and reports the panic. Gin panics with
// the render error when a response cannot be written, so errors are added to the span
// as gin_internal_error.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, err interface{}) {
		c.AbortWithStatus(http.StatusInternalServerError)
		ctx := c.Request.Context()
		span := o11y.FromContext(ctx).GetSpan(ctx)
		if span == nil {
			return
		}

		// http.ErrAbortHandler means the client went away, it is not worth a rollbar
		if e, ok := err.(error); ok && errors.Is(e, http.ErrAbortHandler) {
			o11y.AddResultToSpan(span, e)
			return
		}
		if e, ok := err.(error); ok {
			span.AddField("gin_internal_error", e.Error())
		}
		_ = o11y.HandlePanic(ctx, span, err, c.Request)
	})
}
