package main

import (
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/circleci/ex-demos/testing/kongtest"
)

func TestHelp(t *testing.T) {
	s := kongtest.Help(t, &cli{})
	for _, want := range []string{"API_ADDR", ":3000", "MONGO_URI", "mongodb://db:27017", "MONGO_DB", "mydb", "STORE_WAIT_TIMEOUT", "ADMIN_ADDR", ":8001", "O11Y_FORMAT"} {
		assert.Check(t, cmp.Contains(s, want))
	}
}
