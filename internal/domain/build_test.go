package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionStringFormatsTriple(t *testing.T) {
	assert.Equal(t, "1.2.3", Version{Major: 1, Minor: 2, Patch: 3}.String())
	assert.Equal(t, "0.0.0", Version{}.String())
}

func TestVersionIncrementPatchOnlyBumpsPatch(t *testing.T) {
	v := Version{Major: 1, Minor: 2, Patch: 3}
	next := v.IncrementPatch()
	assert.Equal(t, Version{Major: 1, Minor: 2, Patch: 4}, next)
	assert.Equal(t, Version{Major: 1, Minor: 2, Patch: 3}, v, "IncrementPatch must not mutate the receiver")
}

func TestImageSourceIsBuild(t *testing.T) {
	assert.True(t, ImageSource{BuildId: "build-1"}.IsBuild())
	assert.False(t, ImageSource{Image: "nginx:latest"}.IsBuild())
	assert.False(t, ImageSource{}.IsBuild())
}
