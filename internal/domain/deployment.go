package domain

// ImageSource is a sum type: either a literal Image or a reference to a
// Build at a specific version (empty Version means "latest").
type ImageSource struct {
	// Exactly one of Image / BuildId is set.
	Image   string `json:"image,omitempty"`
	BuildId string `json:"build_id,omitempty"`
	Version string `json:"version,omitempty"`
}

// IsBuild reports whether this ImageSource references a Build.
func (i ImageSource) IsBuild() bool { return i.BuildId != "" }

// PortMapping is one published port on a Deployment.
type PortMapping struct {
	Host      string `json:"host"`
	Container string `json:"container"`
	Protocol  string `json:"protocol,omitempty"`
}

// VolumeMount is one bind/volume mount on a Deployment.
type VolumeMount struct {
	Host      string `json:"host"`
	Container string `json:"container"`
}

// DeploymentConfig is the user-editable container-oriented config (spec §3).
type DeploymentConfig struct {
	ServerId              string            `json:"server_id"`
	Image                 ImageSource       `json:"image"`
	ImageRegistryAccount  string            `json:"image_registry_account,omitempty"`
	SkipSecretInterp      bool              `json:"skip_secret_interp,omitempty"`
	Network               string            `json:"network,omitempty"`
	Restart               string            `json:"restart,omitempty"`
	Command               string            `json:"command,omitempty"`
	ExtraArgs             []string          `json:"extra_args,omitempty"`
	Ports                 []PortMapping     `json:"ports,omitempty"`
	Volumes               []VolumeMount     `json:"volumes,omitempty"`
	Environment           map[string]string `json:"environment,omitempty"`
	Labels                map[string]string `json:"labels,omitempty"`
	TerminationSignal     string            `json:"termination_signal,omitempty"`
	TerminationTimeout    int               `json:"termination_timeout,omitempty"`
	RedeployOnBuild       bool              `json:"redeploy_on_build,omitempty"`
}

// DeploymentInfo is the derived/cached state of a Deployment.
type DeploymentInfo struct {
	State           State  `json:"state"`
	DeployedVersion string `json:"deployed_version,omitempty"`
}

// Deployment is a container-oriented managed resource.
type Deployment struct {
	Meta
	Config DeploymentConfig `json:"config"`
	Info   DeploymentInfo   `json:"info"`
}

// DockerRunAffectingFingerprint returns a comparable value built from the
// Deployment config fields whose change triggers a redeploy in the sync
// deploy-cache builder (spec §4.8).
func (d *Deployment) DockerRunAffectingFingerprint() any {
	return struct {
		ServerId             string
		Image                ImageSource
		ImageRegistryAccount string
		SkipSecretInterp     bool
		Network              string
		Restart              string
		Command              string
		ExtraArgs            []string
		Ports                []PortMapping
		Volumes              []VolumeMount
		Environment          map[string]string
		Labels               map[string]string
	}{
		d.Config.ServerId, d.Config.Image, d.Config.ImageRegistryAccount,
		d.Config.SkipSecretInterp, d.Config.Network, d.Config.Restart,
		d.Config.Command, d.Config.ExtraArgs, d.Config.Ports, d.Config.Volumes,
		d.Config.Environment, d.Config.Labels,
	}
}
