package registryauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenResolvesConfiguredAccount(t *testing.T) {
	r := NewResolver([]Account{
		{Domain: "docker.io", Account: "myorg", Token: "tok-1"},
	})

	token, err := r.Token("docker.io", "myorg")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
}

func TestTokenReturnsEmptyForUnconfiguredProvider(t *testing.T) {
	r := NewResolver(nil)

	token, err := r.Token("ghcr.io", "someorg")
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestTokenReturnsEmptyForEmptyAccount(t *testing.T) {
	r := NewResolver([]Account{{Domain: "docker.io", Account: "myorg", Token: "tok-1"}})

	token, err := r.Token("docker.io", "")
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestPutRegistersAccountAtRuntime(t *testing.T) {
	r := NewResolver(nil)
	r.Put(Account{Domain: "ghcr.io", Account: "someorg", Token: "tok-2"})

	token, err := r.Token("ghcr.io", "someorg")
	require.NoError(t, err)
	assert.Equal(t, "tok-2", token)
}

func TestPutReplacesExistingAccount(t *testing.T) {
	r := NewResolver([]Account{{Domain: "docker.io", Account: "myorg", Token: "old"}})
	r.Put(Account{Domain: "docker.io", Account: "myorg", Token: "new"})

	token, err := r.Token("docker.io", "myorg")
	require.NoError(t, err)
	assert.Equal(t, "new", token)
}

func TestTokenDistinguishesAccountsOnSameDomain(t *testing.T) {
	r := NewResolver([]Account{
		{Domain: "docker.io", Account: "org-a", Token: "tok-a"},
		{Domain: "docker.io", Account: "org-b", Token: "tok-b"},
	})

	tokenA, err := r.Token("docker.io", "org-a")
	require.NoError(t, err)
	tokenB, err := r.Token("docker.io", "org-b")
	require.NoError(t, err)

	assert.Equal(t, "tok-a", tokenA)
	assert.Equal(t, "tok-b", tokenB)
}
