package actionstate

import (
	"testing"

	"github.com/komodo-io/komodo-core/internal/domain"
	"github.com/komodo-io/komodo-core/internal/komodoerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRejectsDoubleAcquire(t *testing.T) {
	r := NewRegistry()

	guard, err := r.Acquire(domain.KindDeployment, "d1", FlagDeploying)
	require.NoError(t, err)
	assert.True(t, r.IsBusy(domain.KindDeployment, "d1", FlagDeploying))

	_, err = r.Acquire(domain.KindDeployment, "d1", FlagDeploying)
	assert.True(t, komodoerr.Is(err, komodoerr.ResourceBusy))

	guard.Release()
	assert.False(t, r.IsBusy(domain.KindDeployment, "d1", FlagDeploying))
}

func TestAcquireDistinctFlagsDoNotConflict(t *testing.T) {
	r := NewRegistry()

	deployGuard, err := r.Acquire(domain.KindDeployment, "d1", FlagDeploying)
	require.NoError(t, err)
	defer deployGuard.Release()

	pullGuard, err := r.Acquire(domain.KindDeployment, "d1", FlagPulling)
	require.NoError(t, err)
	defer pullGuard.Release()

	assert.ElementsMatch(t, []string{FlagDeploying, FlagPulling}, r.ActiveFlags(domain.KindDeployment, "d1"))
}

func TestAcquireDistinctIdsDoNotConflict(t *testing.T) {
	r := NewRegistry()

	g1, err := r.Acquire(domain.KindDeployment, "d1", FlagDeploying)
	require.NoError(t, err)
	defer g1.Release()

	g2, err := r.Acquire(domain.KindDeployment, "d2", FlagDeploying)
	require.NoError(t, err)
	defer g2.Release()

	assert.True(t, r.IsBusy(domain.KindDeployment, "d1", FlagDeploying))
	assert.True(t, r.IsBusy(domain.KindDeployment, "d2", FlagDeploying))
}

func TestReleaseIsIdempotent(t *testing.T) {
	r := NewRegistry()
	guard, err := r.Acquire(domain.KindBuild, "b1", FlagBuilding)
	require.NoError(t, err)

	guard.Release()
	assert.NotPanics(t, func() { guard.Release() })
	assert.False(t, r.IsBusy(domain.KindBuild, "b1", FlagBuilding))
}

func TestActiveFlagsEmptyForUnknownResource(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.ActiveFlags(domain.KindDeployment, "nope"))
}
