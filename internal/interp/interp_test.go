package interp

import (
	"testing"

	"github.com/komodo-io/komodo-core/internal/komodoerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() Snapshot {
	return Snapshot{
		Variables: map[string]string{"REGION": "us-east-1"},
		Secrets:   map[string]string{"DB_PASSWORD": "hunter2"},
	}
}

func TestInterpolateSubstitutesVariable(t *testing.T) {
	res, err := Interpolate("deploying to [[REGION]]", testSnapshot())
	require.NoError(t, err)
	assert.Equal(t, "deploying to us-east-1", res.Value)
	assert.Equal(t, []string{"REGION"}, res.GlobalReplacers)
	assert.Empty(t, res.SecretReplacers)
}

func TestInterpolateSubstitutesSecret(t *testing.T) {
	res, err := Interpolate("password=[[DB_PASSWORD]]", testSnapshot())
	require.NoError(t, err)
	assert.Equal(t, "password=hunter2", res.Value)
	assert.Equal(t, []string{"DB_PASSWORD"}, res.SecretReplacers)
	assert.Empty(t, res.GlobalReplacers)
}

func TestInterpolateMultipleTokens(t *testing.T) {
	res, err := Interpolate("region=[[REGION]] password=[[DB_PASSWORD]]", testSnapshot())
	require.NoError(t, err)
	assert.Equal(t, "region=us-east-1 password=hunter2", res.Value)
	assert.Equal(t, []string{"REGION"}, res.GlobalReplacers)
	assert.Equal(t, []string{"DB_PASSWORD"}, res.SecretReplacers)
}

func TestInterpolateUndefinedTokenIsInterpolationError(t *testing.T) {
	_, err := Interpolate("value=[[MISSING]]", testSnapshot())
	require.Error(t, err)
	assert.True(t, komodoerr.Is(err, komodoerr.Interpolation))
}

func TestInterpolateNoTokensIsUnchanged(t *testing.T) {
	res, err := Interpolate("no tokens here", testSnapshot())
	require.NoError(t, err)
	assert.Equal(t, "no tokens here", res.Value)
}

func TestInterpolateAllAggregatesReplacers(t *testing.T) {
	out, agg, err := InterpolateAll([]string{"--region=[[REGION]]", "--verbose"}, testSnapshot())
	require.NoError(t, err)
	assert.Equal(t, []string{"--region=us-east-1", "--verbose"}, out)
	assert.Equal(t, []string{"REGION"}, agg.GlobalReplacers)
}

func TestInterpolateAllStopsOnFirstError(t *testing.T) {
	_, _, err := InterpolateAll([]string{"[[REGION]]", "[[MISSING]]"}, testSnapshot())
	assert.Error(t, err)
}

func TestInterpolateMapPreservesKeysInterpolatesValues(t *testing.T) {
	out, agg, err := InterpolateMap(map[string]string{"DB_PASS": "[[DB_PASSWORD]]"}, testSnapshot())
	require.NoError(t, err)
	assert.Equal(t, "hunter2", out["DB_PASS"])
	assert.Equal(t, []string{"DB_PASSWORD"}, agg.SecretReplacers)
}

func TestInterpolateMapNilReturnsNil(t *testing.T) {
	out, agg, err := InterpolateMap(nil, testSnapshot())
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Equal(t, Result{}, agg)
}

func TestInterpolatePathCommandInterpolatesBothFields(t *testing.T) {
	pc, agg, err := InterpolatePathCommand(PathCommand{Path: "/srv/[[REGION]]", Command: "echo [[DB_PASSWORD]]"}, testSnapshot())
	require.NoError(t, err)
	assert.Equal(t, "/srv/us-east-1", pc.Path)
	assert.Equal(t, "echo hunter2", pc.Command)
	assert.Equal(t, []string{"REGION"}, agg.GlobalReplacers)
	assert.Equal(t, []string{"DB_PASSWORD"}, agg.SecretReplacers)
}

func TestSanitizeRedactsSecretValue(t *testing.T) {
	out := Sanitize("connecting with password hunter2 now", testSnapshot(), []string{"DB_PASSWORD"})
	assert.Equal(t, "connecting with password [[DB_PASSWORD]] now", out)
}

func TestSanitizeIgnoresUnknownOrEmptySecretNames(t *testing.T) {
	out := Sanitize("nothing secret here", testSnapshot(), []string{"UNKNOWN_SECRET"})
	assert.Equal(t, "nothing secret here", out)
}

func TestSanitizeRedactsAllOccurrences(t *testing.T) {
	out := Sanitize("hunter2 and hunter2 again", testSnapshot(), []string{"DB_PASSWORD"})
	assert.Equal(t, "[[DB_PASSWORD]] and [[DB_PASSWORD]] again", out)
}
