// Package o11y wires the o11y provider used by every binary: honeycomb spans as structured
// logs, statsd metrics and rollbar error reporting.
package o11y

import (
	"context"
	"fmt"
	"os"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/rollbar/rollbar-go"

	"github.com/circleci/ex-demos/config/secret"
	"github.com/circleci/ex-demos/o11y"
	"github.com/circleci/ex-demos/o11y/honeycomb"
)

type Config struct {
	Statsd            string
	RollbarToken      secret.String
	RollbarEnv        string
	RollbarServerRoot string
	HoneycombEnabled  bool
	HoneycombDataset  string
	HoneycombKey      secret.String
	SampleTraces      bool
	SampleKeyFunc     func(map[string]interface{}) string
	SampleRates       map[string]int
	Format            string
	Version           string
	Service           string
	StatsNamespace    string

	// Optional
	Mode                    string
	Debug                   bool
	RollbarDisabled         bool
	StatsdTelemetryDisabled bool
}

// Setup returns a context carrying the configured provider, and the func that flushes and
// closes it. The cleanup should be deferred by main.
func Setup(ctx context.Context, o Config) (context.Context, func(context.Context), error) {
	hc, err := honeycombConfig(o)
	if err != nil {
		return nil, nil, err
	}

	hostname, _ := os.Hostname()

	hc.Metrics, err = metrics(o, hostname)
	if err != nil {
		return nil, nil, err
	}

	provider := honeycomb.New(hc)
	provider.AddGlobalField("service", o.Service)
	provider.AddGlobalField("version", o.Version)
	if o.Mode != "" {
		provider.AddGlobalField("mode", o.Mode)
	}

	if o.RollbarToken != "" {
		rb := rollbar.NewAsync(o.RollbarToken.Raw(), o.RollbarEnv, o.Version, hostname, o.RollbarServerRoot)
		rb.SetEnabled(!o.RollbarDisabled)
		rb.Message(rollbar.INFO, "Deployment")
		provider = rollbarProvider{
			Provider: provider,
			rollbar:  rb,
		}
	}

	return o11y.WithProvider(ctx, provider), provider.Close, nil
}

func metrics(o Config, hostname string) (o11y.ClosableMetricsProvider, error) {
	if o.Statsd == "" {
		return &statsd.NoOpClient{}, nil
	}

	tags := []string{
		"service:" + o.Service,
		"version:" + o.Version,
		"hostname:" + hostname,
	}
	if o.Mode != "" {
		tags = append(tags, "mode:"+o.Mode)
	}

	opts := []statsd.Option{
		statsd.WithNamespace(o.StatsNamespace),
		statsd.WithTags(tags),
	}
	if o.StatsdTelemetryDisabled {
		opts = append(opts, statsd.WithoutTelemetry())
	}
	return statsd.New(o.Statsd, opts...)
}

func honeycombConfig(o Config) (honeycomb.Config, error) {
	keyFunc := o.SampleKeyFunc
	if keyFunc == nil {
		// matches the fields the gin middleware adds
		keyFunc = func(fields map[string]interface{}) string {
			return fmt.Sprintf("%s %s %v",
				fields["http.server_name"],
				fields["http.route"],
				fields["http.status_code"],
			)
		}
	}

	conf := honeycomb.Config{
		Dataset:       o.HoneycombDataset,
		Key:           o.HoneycombKey.Raw(),
		Format:        o.Format,
		SendTraces:    o.HoneycombEnabled,
		SampleTraces:  o.SampleTraces,
		SampleKeyFunc: keyFunc,
		SampleRates:   o.SampleRates,
		ServiceName:   o.Service,
		Debug:         o.Debug,
	}
	return conf, conf.Validate()
}

type rollbarProvider struct {
	o11y.Provider
	rollbar *rollbar.Client
}

func (p rollbarProvider) Close(ctx context.Context) {
	p.Provider.Close(ctx)
	_ = p.rollbar.Close()
}

// RollBarClient lets o11y.HandlePanic report to rollbar.
func (p rollbarProvider) RollBarClient() *rollbar.Client {
	return p.rollbar
}
