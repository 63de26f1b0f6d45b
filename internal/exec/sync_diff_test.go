package exec

import (
	"testing"

	"github.com/komodo-io/komodo-core/internal/domain"
	"github.com/komodo-io/komodo-core/internal/tomlcodec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deploymentAdapter(t *testing.T, e *Engine) kindAdapter {
	t.Helper()
	for _, a := range e.syncAdapters() {
		if a.kind == domain.KindDeployment {
			return a
		}
	}
	t.Fatal("no deployment adapter registered")
	return kindAdapter{}
}

func TestDiffKindCreatesNewEntries(t *testing.T) {
	e := newTestEngine(t)
	adapter := deploymentAdapter(t, e)

	entries := []tomlcodec.Entry{{Name: "api", Config: map[string]any{"network": "bridge"}}}
	diff, err := e.diffKind(domain.ResourceSyncConfig{}, adapter, entries)
	require.NoError(t, err)

	assert.Len(t, diff.creates, 1)
	assert.Empty(t, diff.updates)
	assert.Empty(t, diff.deletes)
	assert.Equal(t, "api", diff.creates[0].Name)
}

func TestDiffKindUpdatesChangedConfig(t *testing.T) {
	e := newTestEngine(t)
	adapter := deploymentAdapter(t, e)

	d := &domain.Deployment{Meta: domain.Meta{Name: "api"}, Config: domain.DeploymentConfig{Network: "bridge"}}
	require.NoError(t, e.Store.CreateDeployment(d))

	entries := []tomlcodec.Entry{{Name: "api", Config: map[string]any{"network": "host"}}}
	diff, err := e.diffKind(domain.ResourceSyncConfig{}, adapter, entries)
	require.NoError(t, err)

	assert.Empty(t, diff.creates)
	require.Len(t, diff.updates, 1)
	assert.Equal(t, "host", diff.updates[0].Config["network"])
}

func TestDiffKindUpdateRevertsFieldDroppedFromEntryToTypeDefault(t *testing.T) {
	e := newTestEngine(t)
	adapter := deploymentAdapter(t, e)

	d := &domain.Deployment{Meta: domain.Meta{Name: "api"}, Config: domain.DeploymentConfig{Network: "bridge", Restart: "always"}}
	require.NoError(t, e.Store.CreateDeployment(d))

	// The TOML entry no longer mentions `network`; it should revert to its
	// type default ("") rather than keep the previously persisted "bridge".
	entries := []tomlcodec.Entry{{Name: "api", Config: map[string]any{"restart": "always"}}}
	diff, err := e.diffKind(domain.ResourceSyncConfig{}, adapter, entries)
	require.NoError(t, err)

	require.Len(t, diff.updates, 1)
	assert.Equal(t, "", diff.updates[0].Config["network"])
	assert.Equal(t, "always", diff.updates[0].Config["restart"])
}

func TestDiffKindSkipsUnchangedEntries(t *testing.T) {
	e := newTestEngine(t)
	adapter := deploymentAdapter(t, e)

	tagIds, err := e.resolveTagIds([]string{"prod"})
	require.NoError(t, err)

	d := &domain.Deployment{Meta: domain.Meta{Name: "api", Tags: tagIds}, Config: domain.DeploymentConfig{Network: "bridge"}}
	require.NoError(t, e.Store.CreateDeployment(d))

	entries := []tomlcodec.Entry{{Name: "api", Tags: []string{"prod"}, Config: map[string]any{"network": "bridge"}}}
	diff, err := e.diffKind(domain.ResourceSyncConfig{}, adapter, entries)
	require.NoError(t, err)

	assert.Empty(t, diff.creates)
	assert.Empty(t, diff.updates)
}

func TestDiffKindDeletesOnlyWhenManaged(t *testing.T) {
	e := newTestEngine(t)
	adapter := deploymentAdapter(t, e)

	d := &domain.Deployment{Meta: domain.Meta{Name: "api"}}
	require.NoError(t, e.Store.CreateDeployment(d))

	diffNotManaged, err := e.diffKind(domain.ResourceSyncConfig{}, adapter, nil)
	require.NoError(t, err)
	assert.Empty(t, diffNotManaged.deletes, "unmanaged syncs must never delete")

	diffManaged, err := e.diffKind(domain.ResourceSyncConfig{Managed: true}, adapter, nil)
	require.NoError(t, err)
	require.Len(t, diffManaged.deletes, 1)
	assert.Equal(t, d.Id, diffManaged.deletes[0])
}

func TestApplyKindDiffRunsDeleteThenCreateThenUpdate(t *testing.T) {
	e := newTestEngine(t)
	adapter := deploymentAdapter(t, e)

	stale := &domain.Deployment{Meta: domain.Meta{Name: "stale"}}
	require.NoError(t, e.Store.CreateDeployment(stale))
	existing := &domain.Deployment{Meta: domain.Meta{Name: "existing"}, Config: domain.DeploymentConfig{Network: "bridge"}}
	require.NoError(t, e.Store.CreateDeployment(existing))

	diff := kindDiff{
		kind:    domain.KindDeployment,
		deletes: []string{stale.Id},
		creates: []syncItem{{Name: "new", Config: map[string]any{"network": "host"}}},
		updates: []syncItem{{Id: existing.Id, Name: "existing", Config: map[string]any{"network": "none"}}},
	}

	log := e.applyKindDiff(adapter, diff)
	assert.True(t, log.Success)

	_, err := e.Store.GetDeployment(stale.Id)
	assert.Error(t, err)

	created, err := e.Store.GetDeploymentByName("new")
	require.NoError(t, err)
	assert.Equal(t, "host", created.Config.Network)

	updated, err := e.Store.GetDeployment(existing.Id)
	require.NoError(t, err)
	assert.Equal(t, "none", updated.Config.Network)
}

func TestApplyKindDiffContinuesOnItemFailure(t *testing.T) {
	e := newTestEngine(t)
	adapter := deploymentAdapter(t, e)

	diff := kindDiff{
		kind:    domain.KindDeployment,
		updates: []syncItem{{Id: "does-not-exist", Name: "missing"}},
		creates: []syncItem{{Name: "good", Config: map[string]any{"network": "bridge"}}},
	}

	log := e.applyKindDiff(adapter, diff)
	assert.False(t, log.Success)

	_, err := e.Store.GetDeploymentByName("good")
	assert.NoError(t, err, "a failing update must not prevent an independent create from applying")
}
