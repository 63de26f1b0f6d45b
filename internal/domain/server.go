package domain

// ServerConfig describes a managed host running a Periphery agent.
type ServerConfig struct {
	Address string `json:"address"`
	Passkey string `json:"passkey"`
	Enabled bool   `json:"enabled"`
	Region  string `json:"region,omitempty"`
}

// ServerInfo is the derived state of a Server.
type ServerInfo struct {
	Reachable   bool   `json:"reachable"`
	Version     string `json:"version,omitempty"`
	LastCheckAt int64  `json:"last_check_at,omitempty"`
}

// Server is a managed host.
type Server struct {
	Meta
	Config ServerConfig `json:"config"`
	Info   ServerInfo   `json:"info"`
}

// RepoConfig describes a standalone git repository clone target.
type RepoConfig struct {
	ServerId    string `json:"server_id"`
	Repo        string `json:"repo"`
	Branch      string `json:"branch,omitempty"`
	Commit      string `json:"commit,omitempty"`
	GitProvider string `json:"git_provider,omitempty"`
	GitAccount  string `json:"git_account,omitempty"`
	Path        string `json:"path,omitempty"`
}

type RepoInfo struct {
	LastCloneHash string `json:"last_clone_hash,omitempty"`
}

type Repo struct {
	Meta
	Config RepoConfig `json:"config"`
	Info   RepoInfo   `json:"info"`
}

// ProcedureStage is one step of a Procedure.
type ProcedureStage struct {
	Name       string   `json:"name"`
	Executions []string `json:"executions"` // execution descriptors, opaque to this layer
}

type ProcedureConfig struct {
	Stages []ProcedureStage `json:"stages"`
}

type Procedure struct {
	Meta
	Config ProcedureConfig `json:"config"`
}

// ActionConfig holds a scripted automation body; execution is delegated to
// the periphery or an internal runner, out of scope for this spec.
type ActionConfig struct {
	Script string `json:"script"`
}

type Action struct {
	Meta
	Config ActionConfig `json:"config"`
}

// BuilderConfig describes either a static Server builder or an ephemeral
// cloud builder (spec §4.7).
type BuilderConfig struct {
	Type BuilderType `json:"type"`

	// Server builder.
	ServerId string `json:"server_id,omitempty"`

	// Ephemeral cloud builder (either provider; Provider selects which).
	Provider         CloudProvider     `json:"provider,omitempty"`
	Region           string            `json:"region,omitempty"`
	InstanceType     string            `json:"instance_type,omitempty"`
	AMIId            string            `json:"ami_id,omitempty"`
	SubnetId         string            `json:"subnet_id,omitempty"`
	SecurityGroupIds []string          `json:"security_group_ids,omitempty"`
	KeyPairName      string            `json:"key_pair_name,omitempty"`
	Volumes          []BuilderVolume   `json:"volumes,omitempty"`
	AssignPublicIp   bool              `json:"assign_public_ip,omitempty"`
	UsePublicIp      bool              `json:"use_public_ip,omitempty"`
	UserData         string            `json:"user_data,omitempty"`
	Port             int               `json:"port,omitempty"`
	Labels           map[string]string `json:"labels,omitempty"`
}

type BuilderType string

const (
	BuilderTypeServer BuilderType = "Server"
	BuilderTypeCloud  BuilderType = "Cloud"
)

type CloudProvider string

const (
	CloudProviderAWS     CloudProvider = "aws"
	CloudProviderHetzner CloudProvider = "hetzner"
)

type BuilderVolume struct {
	DeviceName string `json:"device_name"`
	SizeGB     int    `json:"size_gb"`
}

type Builder struct {
	Meta
	Config BuilderConfig `json:"config"`
}

// AlerterConfig names which alert endpoint/transport config this alerter
// carries. Delivery transport (Slack/Discord/etc.) is out of scope; only the
// contract (does this alerter cover resource R, and at what severity) lives
// here.
type AlerterConfig struct {
	Enabled bool `json:"enabled"`
	// EndpointRef is an opaque reference resolved by the out-of-scope
	// delivery layer (e.g. a webhook URL name).
	EndpointRef string `json:"endpoint_ref,omitempty"`
}

type Alerter struct {
	Meta
	Config AlerterConfig `json:"config"`
}

// Variable is a plain named value usable in `[[NAME]]` interpolation.
type Variable struct {
	Meta
	Value string `json:"value"`
}

// UserGroup groups users and carries a permissions list.
type UserGroup struct {
	Meta
	Users       []string            `json:"users,omitempty"`
	Permissions []PermissionBinding `json:"permissions,omitempty"`
}
