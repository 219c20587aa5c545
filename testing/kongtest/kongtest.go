// Package kongtest renders the help of a kong CLI struct, so tests can check flags and defaults.
package kongtest

import (
	"bytes"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/google/go-cmp/cmp"
	"gotest.tools/v3/assert"
)

// Help parses --help into cli, which also fills cli with its defaults, and returns the output.
func Help(t *testing.T, cli interface{}) string {
	t.Helper()

	w := &bytes.Buffer{}
	rc := -1
	app, err := kong.New(cli,
		kong.Name("test-app"),
		kong.Writers(w, w),
		kong.Exit(func(i int) {
			rc = i
		}),
	)
	assert.Assert(t, err)

	_, err = app.Parse([]string{"--help"})
	assert.Check(t, err)
	assert.Check(t, cmp.Equal(0, rc), "exit code %d", rc)

	return w.String()
}

// Parse fills cli from args, applying defaults and environment like the binary would.
func Parse(t *testing.T, cli interface{}, args ...string) {
	t.Helper()

	app, err := kong.New(cli, kong.Name("test-app"))
	assert.Assert(t, err)

	_, err = app.Parse(args)
	assert.Assert(t, err)
}
