package mongoex

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"

	"github.com/gwatts/rootcerts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/circleci/ex-demos/config/secret"
	"github.com/circleci/ex-demos/o11y"
)

type Config struct {
	// URI may carry credentials, so it is kept out of logs
	URI    secret.String
	UseTLS bool

	// Options is applied before the URI, so the URI wins where both set something
	Options *options.ClientOptions
}

// New creates a client. The driver connects lazily, so an unreachable server is not an
// error here, see WaitReady.
func New(ctx context.Context, appName string, cfg Config) (client *mongo.Client, err error) {
	ctx, span := o11y.StartSpan(ctx, "mongoex: connect")
	defer o11y.End(span, &err)

	u, err := url.Parse(cfg.URI.Raw())
	// url errors include the input, which would include the password
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return nil, fmt.Errorf("mongoex: failed to parse URI: %w", urlErr.Err)
	} else if err != nil {
		return nil, err
	}
	span.AddField("host", u.Host)
	span.AddField("app_name", appName)
	span.AddField("tls", cfg.UseTLS)

	opts := cfg.Options
	if opts == nil {
		opts = options.Client()
	}
	opts.ApplyURI(cfg.URI.Raw()).SetAppName(appName)

	if cfg.UseTLS {
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tls.VersionTLS12,
			RootCAs:    rootcerts.ServerCertPool(),
		})
	}

	return mongo.Connect(ctx, opts)
}
