package honeycomb

import (
	"fmt"
	"hash/crc32"
	"math"

	"github.com/honeycombio/dynsampler-go"
)

// TraceSampler decides per span whether to keep it, using a rate looked up from Sampler
// by the key KeyFunc builds from the span fields. All spans of one trace get the same decision.
type TraceSampler struct {
	KeyFunc func(map[string]interface{}) string
	Sampler dynsampler.Sampler
}

// Hook has the signature of beeline.Config.SamplerHook
func (s *TraceSampler) Hook(fields map[string]interface{}) (sample bool, rate int) {
	if keep, ok := fields["meta.keep.span"].(bool); ok && keep {
		return true, 1
	}

	rate = s.Sampler.GetSampleRate(s.KeyFunc(fields))
	if !shouldSample(fmt.Sprintf("%v", fields["trace.trace_id"]), rate) {
		return false, 0
	}
	return true, rate
}

// shouldSample is the same deterministic sampler the beeline uses, keyed on the trace ID.
func shouldSample(determinant string, rate int) bool {
	if rate <= 1 {
		return true
	}
	threshold := math.MaxUint32 / uint32(rate) //nolint:gosec
	return crc32.ChecksumIEEE([]byte(determinant)) < threshold
}
