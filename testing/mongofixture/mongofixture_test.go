package mongofixture

import (
	"testing"

	"go.mongodb.org/mongo-driver/mongo/readpref"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/circleci/ex-demos/testing/testcontext"
)

func TestSetup(t *testing.T) {
	ctx := testcontext.Background()
	fix := Setup(ctx, t, Connection{})

	assert.Assert(t, fix.DB != nil)
	assert.Check(t, cmp.Contains(fix.Name, "_TestSetup"))
	assert.Check(t, fix.DB.Client().Ping(ctx, readpref.Primary()))
}

func TestTruncate(t *testing.T) {
	long := "abcdefghijklmnopqrstuvwxyzabcdefghijklmnopqrstuvwxyzabcdefghijklmnopqrstuvwxyz"
	assert.Check(t, cmp.Len(truncate(long), 63))
	assert.Check(t, cmp.Equal(truncate("short"), "short"))
}
