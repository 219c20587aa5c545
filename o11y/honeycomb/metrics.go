package honeycomb

import (
	"fmt"
	"strings"
	"time"

	"github.com/circleci/ex-demos/o11y"
)

const metricKey = "__MAGIC_METRIC_KEY__"

// metricsHook returns a beeline hook that turns the metrics recorded on a span into calls
// to mp. The metrics field is always removed so it never reaches a sender.
func metricsHook(mp o11y.MetricsProvider) func(map[string]interface{}) {
	if mp == nil {
		return func(fields map[string]interface{}) {
			delete(fields, metricKey)
		}
	}

	return func(fields map[string]interface{}) {
		standardMetrics(mp, fields)

		metrics, ok := fields[metricKey].([]o11y.Metric)
		delete(fields, metricKey)
		if !ok {
			return
		}
		for _, m := range metrics {
			emit(mp, m, fields)
		}
	}
}

func emit(mp o11y.MetricsProvider, m o11y.Metric, fields map[string]interface{}) {
	tags := tagsFromFields(m.TagFields, fields)

	switch m.Type {
	case o11y.MetricTimer:
		val, ok := getField(m.Field, fields)
		if !ok {
			return
		}
		ms, ok := toMilliseconds(val)
		if !ok {
			panic(m.Field + " can not be coerced to milliseconds")
		}
		_ = mp.TimeInMilliseconds(m.Name, ms, tags, 1)

	case o11y.MetricCount:
		n := int64(1)
		if m.Field != "" {
			val, ok := getField(m.Field, fields)
			if !ok {
				return
			}
			n, ok = toInt64(val)
			if !ok {
				panic(m.Field + " can not be coerced to int")
			}
		}
		if m.FixedTag != nil {
			tags = append(tags, fmtTag(m.FixedTag.Name, m.FixedTag.Value))
		}
		_ = mp.Count(m.Name, n, tags, 1)

	case o11y.MetricGauge:
		val, ok := getField(m.Field, fields)
		if !ok {
			return
		}
		f, ok := toFloat64(val)
		if !ok {
			panic(m.Field + " can not be coerced to float")
		}
		_ = mp.Gauge(m.Name, f, tags, 1)
	}
}

// standardMetrics counts every error, warning and failure class regardless of what
// metrics the span asked for.
func standardMetrics(mp o11y.MetricsProvider, fields map[string]interface{}) {
	if class := addFailure(fields); class != "" {
		_ = mp.Count("failure", 1, []string{fmtTag("class", class)}, 1)
	}
	tag := []string{fmtTag("type", "o11y")}
	if _, ok := fields["error"]; ok {
		_ = mp.Count("error", 1, tag, 1)
	}
	if _, ok := fields["warning"]; ok {
		_ = mp.Count("warning", 1, tag, 1)
	}
}

// addFailure sets the failure field to the prefix of the first field named <prefix>_error,
// unless a failure field is already present, and returns that prefix.
func addFailure(fields map[string]interface{}) string {
	if _, ok := fields["failure"]; ok {
		return ""
	}
	for k := range fields {
		if class := strings.TrimSuffix(k, "_error"); class != k {
			fields["failure"] = class
			return class
		}
	}
	return ""
}

func tagsFromFields(names []string, fields map[string]interface{}) []string {
	tags := make([]string, 0, len(names))
	for _, name := range names {
		if val, ok := getField(name, fields); ok {
			tags = append(tags, fmtTag(name, val))
		}
	}
	return tags
}

// getField looks for name with and without the app. prefix added by Span.AddField.
func getField(name string, fields map[string]interface{}) (interface{}, bool) {
	if val, ok := fields[name]; ok {
		return val, true
	}
	val, ok := fields["app."+name]
	return val, ok
}

func toInt64(val interface{}) (int64, bool) {
	switch v := val.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	return 0, false
}

func toFloat64(val interface{}) (float64, bool) {
	if f, ok := val.(float64); ok {
		return f, true
	}
	if i, ok := toInt64(val); ok {
		return float64(i), true
	}
	return 0, false
}

func toMilliseconds(val interface{}) (float64, bool) {
	if f, ok := toFloat64(val); ok {
		return f, true
	}
	switch d := val.(type) {
	case time.Duration:
		return float64(d.Milliseconds()), true
	case *time.Duration:
		return float64(d.Milliseconds()), true
	}
	return 0, false
}

func fmtTag(name string, val interface{}) string {
	return fmt.Sprintf("%s:%v", name, val)
}
