package main

import (
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/circleci/ex-demos/testing/kongtest"
)

func TestHelp(t *testing.T) {
	s := kongtest.Help(t, &cli{})
	for _, want := range []string{"API_ADDR", ":5000", "REDIS_ADDR", "redis:6379", "STORE_WAIT_TIMEOUT", "ADMIN_ADDR", ":8001", "O11Y_FORMAT"} {
		assert.Check(t, cmp.Contains(s, want))
	}
}
