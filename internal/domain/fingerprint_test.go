package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeploymentFingerprintChangesWhenDockerRunAffectingFieldChanges(t *testing.T) {
	d := &Deployment{Config: DeploymentConfig{ServerId: "srv-1", Network: "bridge"}}
	base := d.DockerRunAffectingFingerprint()

	d.Config.Network = "host"
	assert.NotEqual(t, base, d.DockerRunAffectingFingerprint())
}

func TestDeploymentFingerprintIgnoresNonAffectingFields(t *testing.T) {
	d := &Deployment{Config: DeploymentConfig{ServerId: "srv-1"}}
	base := d.DockerRunAffectingFingerprint()

	d.Info.State = StateRunning
	d.Info.DeployedVersion = "1.0.0"
	assert.Equal(t, base, d.DockerRunAffectingFingerprint())
}

func TestStackFingerprintChangesWhenDockerRunAffectingFieldChanges(t *testing.T) {
	s := &Stack{Config: StackConfig{ServerId: "srv-1", Repo: "example/repo"}}
	base := s.DockerRunAffectingFingerprint()

	s.Config.Repo = "example/other"
	assert.NotEqual(t, base, s.DockerRunAffectingFingerprint())
}

func TestStackFingerprintIgnoresNonAffectingFields(t *testing.T) {
	s := &Stack{Config: StackConfig{ServerId: "srv-1"}}
	base := s.DockerRunAffectingFingerprint()

	s.Config.WebhookEnabled = true
	s.Info.State = StateRunning
	assert.Equal(t, base, s.DockerRunAffectingFingerprint())
}

func TestTargetExtractVariantIdReturnsKindAndId(t *testing.T) {
	target := Target{Kind: KindDeployment, Id: "dep-1"}
	kind, id := target.ExtractVariantId()
	assert.Equal(t, KindDeployment, kind)
	assert.Equal(t, "dep-1", id)
}
