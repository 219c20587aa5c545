// Package honeycomb implements the o11y provider on top of the honeycomb beeline.
//
// Every span is written to the configured writer in one of the supported formats, and is
// optionally also sent to the honeycomb API.
package honeycomb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/honeycombio/beeline-go"
	"github.com/honeycombio/beeline-go/client"
	"github.com/honeycombio/beeline-go/propagation"
	"github.com/honeycombio/beeline-go/trace"
	"github.com/honeycombio/dynsampler-go"
	"github.com/honeycombio/libhoney-go"
	"github.com/honeycombio/libhoney-go/transmission"

	"github.com/circleci/ex-demos/o11y"
)

type Config struct {
	Host    string
	Dataset string
	Key     string
	// Format is one of json (the default), text, color or none
	Format string
	// SendTraces sends the spans to the honeycomb API as well as to Writer
	SendTraces bool
	// Sender overrides the honeycomb API sender, mostly for testing
	Sender        transmission.Sender
	SampleTraces  bool
	SampleKeyFunc func(map[string]interface{}) string
	SampleRates   map[string]int
	// Writer defaults to stderr
	Writer      io.Writer
	Metrics     o11y.ClosableMetricsProvider
	ServiceName string

	Debug bool
}

func (c *Config) Validate() error {
	if c.SendTraces && c.Key == "" && c.Sender == nil {
		return errors.New("honeycomb_key key required for honeycomb")
	}
	return nil
}

func (c *Config) sender() transmission.Sender {
	w := c.Writer
	if w == nil {
		w = os.Stderr
	}

	s := &MultiSender{}
	switch {
	case c.SendTraces && c.Sender != nil:
		s.Senders = append(s.Senders, c.Sender)
	case c.SendTraces:
		s.Senders = append(s.Senders, &transmission.Honeycomb{
			MaxBatchSize:         libhoney.DefaultMaxBatchSize,
			BatchTimeout:         libhoney.DefaultBatchTimeout,
			MaxConcurrentBatches: libhoney.DefaultMaxConcurrentBatches,
			PendingWorkCapacity:  libhoney.DefaultPendingWorkCapacity,
			UserAgentAddition:    c.ServiceName,
		})
	}

	switch c.Format {
	case "none":
	case "text":
		s.Senders = append(s.Senders, &TextSender{w: w})
	case "color", "colour":
		s.Senders = append(s.Senders, &TextSender{w: w, colour: true})
	default:
		s.Senders = append(s.Senders, &transmission.WriterSender{W: w})
	}
	return s
}

type honeycomb struct {
	metricsProvider o11y.ClosableMetricsProvider
}

// New initialises the beeline and returns a provider wrapping it. The beeline is a process
// wide singleton, so the most recent call to New wins.
func New(conf Config) o11y.Provider {
	// beeline ignores this error in its own default constructor.
	hc, _ := libhoney.NewClient(libhoney.ClientConfig{
		APIKey:       conf.Key,
		Dataset:      conf.Dataset,
		APIHost:      conf.Host,
		Transmission: conf.sender(),
	})

	bc := beeline.Config{
		Client:      hc,
		Debug:       conf.Debug,
		WriteKey:    conf.Key,
		ServiceName: conf.ServiceName,
	}

	sendMetrics := metricsHook(conf.Metrics)
	if conf.SampleTraces {
		if conf.SampleRates == nil {
			conf.SampleRates = map[string]int{}
		}
		sampler := &TraceSampler{
			KeyFunc: conf.SampleKeyFunc,
			Sampler: &dynsampler.Static{
				Default: 1,
				Rates:   conf.SampleRates,
			},
		}
		// PresendHook is skipped for dropped spans, so metrics go out before sampling.
		bc.SamplerHook = func(fields map[string]interface{}) (bool, int) {
			sendMetrics(fields)
			return sampler.Hook(fields)
		}
	} else {
		bc.PresendHook = sendMetrics
	}

	beeline.Init(bc)

	return &honeycomb{
		metricsProvider: conf.Metrics,
	}
}

func (h *honeycomb) AddGlobalField(key string, val interface{}) {
	mustValidateKey(key)
	client.AddField(key, val)
}

func (h *honeycomb) StartSpan(ctx context.Context, name string) (context.Context, o11y.Span) {
	var s *trace.Span
	if parent := trace.GetSpanFromContext(ctx); parent != nil {
		ctx, s = parent.CreateAsyncChild(ctx)
	} else {
		// start a new trace, and use its root span
		ctx, _ = trace.NewTrace(ctx, nil)
		s = trace.GetSpanFromContext(ctx)
	}
	s.AddField("name", name)

	return ctx, WrapSpan(s)
}

func (h *honeycomb) GetSpan(ctx context.Context) o11y.Span {
	return WrapSpan(trace.GetSpanFromContext(ctx))
}

func (h *honeycomb) AddField(ctx context.Context, key string, val interface{}) {
	mustValidateKey(key)
	beeline.AddField(ctx, key, val)
}

func (h *honeycomb) AddFieldToTrace(ctx context.Context, key string, val interface{}) {
	mustValidateKey(key)
	beeline.AddFieldToTrace(ctx, key, val)
}

func (h *honeycomb) Log(ctx context.Context, name string, fields ...o11y.Pair) {
	_, s := h.StartSpan(ctx, name)
	for _, f := range fields {
		s.AddField(f.Key, f.Value)
	}
	s.End()
}

func (h *honeycomb) Close(_ context.Context) {
	beeline.Close()
	if h.metricsProvider != nil {
		_ = h.metricsProvider.Close()
	}
}

func (h *honeycomb) MetricsProvider() o11y.MetricsProvider {
	return h.metricsProvider
}

func (h *honeycomb) Helpers() o11y.Helpers {
	return helpers{}
}

type helpers struct{}

func (helpers) ExtractPropagation(ctx context.Context) o11y.PropagationContext {
	s := trace.GetSpanFromContext(ctx)
	if s == nil {
		return o11y.PropagationContext{}
	}
	parent := s.SerializeHeaders()
	return o11y.PropagationContext{
		Parent: parent,
		Headers: http.Header{
			propagation.TracePropagationHTTPHeader: []string{parent},
		},
	}
}

// InjectPropagation starts a new trace continuing the one described by p. Honeycomb headers
// take precedence over w3c traceparent headers.
func (helpers) InjectPropagation(ctx context.Context, p o11y.PropagationContext) (context.Context, o11y.Span) {
	var prop *propagation.PropagationContext

	hdr := p.Parent
	if hdr == "" && p.Headers != nil {
		hdr = p.Headers.Get(propagation.TracePropagationHTTPHeader)
	}
	switch {
	case hdr != "":
		prop, _ = propagation.UnmarshalHoneycombTraceContext(hdr)
	case p.Headers != nil:
		_, prop, _ = propagation.UnmarshalW3CTraceContext(ctx, map[string]string{
			propagation.TraceparentHeader: p.Headers.Get(propagation.TraceparentHeader),
		})
	}

	ctx, tr := trace.NewTrace(ctx, prop)
	return ctx, WrapSpan(tr.GetRootSpan())
}

func (helpers) TraceIDs(ctx context.Context) (traceID, parentID string) {
	t := trace.GetTraceFromContext(ctx)
	if t == nil {
		return "", ""
	}
	return t.GetTraceID(), t.GetParentID()
}

// WrapSpan adapts a beeline span to o11y.Span. A nil span stays nil.
func WrapSpan(s *trace.Span) o11y.Span {
	if s == nil {
		return nil
	}
	return &span{span: s}
}

type span struct {
	span    *trace.Span
	metrics []o11y.Metric
}

func (s *span) AddField(key string, val interface{}) {
	s.AddRawField("app."+key, val)
}

func (s *span) AddRawField(key string, val interface{}) {
	mustValidateKey(key)
	if err, ok := val.(error); ok {
		val = err.Error()
	}
	s.span.AddField(key, val)
}

func (s *span) RecordMetric(metric o11y.Metric) {
	s.metrics = append(s.metrics, metric)
	// the presend hook picks the metrics back out of the span fields
	s.span.AddField(metricKey, s.metrics)
}

func (s *span) End() {
	s.span.Send()
}

// mustValidateKey panics on keys containing '-', statsd tags and honeycomb columns both
// use '_' as the separator.
func mustValidateKey(key string) {
	if strings.Contains(key, "-") {
		panic(fmt.Errorf("key %q cannot contain '-'", key))
	}
}
