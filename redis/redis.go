package redis

import (
	"crypto/tls"
	"net"

	"github.com/go-redis/redis/v8"
	"github.com/gwatts/rootcerts"

	"github.com/circleci/ex-demos/config/secret"
)

type Options struct {
	// Name is used for the health check and metrics, it defaults to "redis"
	Name     string
	Addr     string
	User     string
	Password secret.String
	DB       int

	TLS bool
}

func (o Options) name() string {
	if o.Name == "" {
		return "redis"
	}
	return o.Name
}

// New only constructs the client, the caller is responsible for closing it.
// Commands run through the client are traced.
func New(o Options) *redis.Client {
	opts := &redis.Options{
		Addr:     o.Addr,
		Username: o.User,
		Password: o.Password.Raw(),
		DB:       o.DB,
	}
	if o.TLS {
		host, _, err := net.SplitHostPort(o.Addr)
		if err != nil {
			host = o.Addr
		}
		opts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
			ServerName: host,
			RootCAs:    rootcerts.ServerCertPool(),
		}
	}

	client := redis.NewClient(opts)
	client.AddHook(tracingHook{system: o.name()})
	return client
}
