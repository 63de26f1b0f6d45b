package tomlcodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoundTrip(t *testing.T) {
	src := `
[[deployment]]
name = "api"
description = "the api service"
tags = ["prod", "web"]
after = ["db"]

[deployment.config]
image = "example/api:latest"
server_id = "srv1"

[[resource_sync]]
name = "main-sync"
deploy = false
`
	r, err := Parse([]byte(src))
	require.NoError(t, err)
	require.Len(t, r.Deployment, 1)

	d := r.Deployment[0]
	assert.Equal(t, "api", d.Name)
	assert.Equal(t, "the api service", d.Description)
	assert.Equal(t, []string{"prod", "web"}, d.Tags)
	assert.Equal(t, []string{"db"}, d.After)
	assert.Equal(t, "example/api:latest", d.Config["image"])
	assert.Equal(t, "srv1", d.Config["server_id"])

	require.Len(t, r.ResourceSync, 1)
	assert.Equal(t, "main-sync", r.ResourceSync[0].Name)

	out, err := Serialize(r)
	require.NoError(t, err)

	reparsed, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, r.Deployment[0].Name, reparsed.Deployment[0].Name)
	assert.Equal(t, r.Deployment[0].Config["image"], reparsed.Deployment[0].Config["image"])
}

func TestParseEmptyDocument(t *testing.T) {
	r, err := Parse([]byte(``))
	require.NoError(t, err)
	assert.Empty(t, r.Deployment)
	assert.Empty(t, r.Stack)
}

func TestParseInvalidTomlReturnsError(t *testing.T) {
	_, err := Parse([]byte(`not = [valid`))
	assert.Error(t, err)
}

func TestMinimizePartialDropsMatchingFields(t *testing.T) {
	config := map[string]any{
		"image":       "example/api:latest",
		"server_id":   "srv1",
		"extra_args":  []string{},
		"auto_update": false,
	}
	defaults := map[string]any{
		"image":       "",
		"server_id":   "srv1",
		"extra_args":  []string{},
		"auto_update": false,
	}

	minimized := MinimizePartial(config, defaults)
	assert.Equal(t, map[string]any{"image": "example/api:latest"}, minimized)
}

func TestMinimizePartialKeepsFieldsAbsentFromDefaults(t *testing.T) {
	config := map[string]any{"new_field": "value"}
	minimized := MinimizePartial(config, map[string]any{})
	assert.Equal(t, config, minimized)
}
