package domain

// PreDeploy is a {path, command} pair run before a stack deploy.
type PreDeploy struct {
	Path    string `json:"path,omitempty"`
	Command string `json:"command,omitempty"`
}

// StackConfig is the user-editable compose-oriented config (spec §3).
type StackConfig struct {
	ServerId             string            `json:"server_id"`
	ProjectName          string            `json:"project_name,omitempty"`
	RunDirectory         string            `json:"run_directory,omitempty"`
	FilePaths            []string          `json:"file_paths,omitempty"`
	FilesOnHost          bool              `json:"files_on_host,omitempty"`
	FileContents         string            `json:"file_contents,omitempty"`
	Repo                 string            `json:"repo,omitempty"`
	Branch               string            `json:"branch,omitempty"`
	Commit               string            `json:"commit,omitempty"`
	GitProvider          string            `json:"git_provider,omitempty"`
	GitAccount           string            `json:"git_account,omitempty"`
	RegistryProvider     string            `json:"registry_provider,omitempty"`
	RegistryAccount      string            `json:"registry_account,omitempty"`
	ExtraArgs            []string          `json:"extra_args,omitempty"`
	BuildExtraArgs       []string          `json:"build_extra_args,omitempty"`
	PreDeploy            PreDeploy         `json:"pre_deploy,omitempty"`
	Environment          map[string]string `json:"environment,omitempty"`
	EnvFilePath          string            `json:"env_file_path,omitempty"`
	AdditionalEnvFiles   []string          `json:"additional_env_files,omitempty"`
	SkipSecretInterp     bool              `json:"skip_secret_interp,omitempty"`
	IgnoreServices       []string          `json:"ignore_services,omitempty"`
	WebhookEnabled       bool              `json:"webhook_enabled,omitempty"`
	WebhookSecret        string            `json:"webhook_secret,omitempty"`
}

// FileContentEntry is one (path, contents) pair of a stack's compose files,
// used to compare deployed vs. remote contents in the sync deploy-cache
// builder (spec §4.8).
type FileContentEntry struct {
	Path     string `json:"path"`
	Contents string `json:"contents"`
}

// StackInfo is the derived/cached state of a Stack (spec §3).
type StackInfo struct {
	State                State              `json:"state"`
	MissingFiles         []string           `json:"missing_files,omitempty"`
	DeployedProjectName  string             `json:"deployed_project_name,omitempty"`
	DeployedHash         string             `json:"deployed_hash,omitempty"`
	DeployedMessage      string             `json:"deployed_message,omitempty"`
	DeployedContents     []FileContentEntry `json:"deployed_contents,omitempty"`
	DeployedServices     []string           `json:"deployed_services,omitempty"`
	LatestServices       []string           `json:"latest_services,omitempty"`
	RemoteContents       []FileContentEntry `json:"remote_contents,omitempty"`
	RemoteErrors         []string           `json:"remote_errors,omitempty"`
	LatestHash           string             `json:"latest_hash,omitempty"`
	LatestMessage        string             `json:"latest_message,omitempty"`
}

// Stack is a compose-oriented managed resource.
type Stack struct {
	Meta
	Config StackConfig `json:"config"`
	Info   StackInfo   `json:"info"`
}

// DockerRunAffectingFingerprint lists the Stack config fields whose change
// should trigger a redeploy in the sync deploy-cache builder (spec §4.8).
func (s *Stack) DockerRunAffectingFingerprint() any {
	return struct {
		ServerId         string
		ProjectName      string
		RunDirectory     string
		FilePaths        []string
		FileContents     string
		SkipSecretInterp bool
		ExtraArgs        []string
		Environment      map[string]string
		EnvFilePath      string
		Repo             string
		Branch           string
		Commit           string
	}{
		s.Config.ServerId, s.Config.ProjectName, s.Config.RunDirectory,
		s.Config.FilePaths, s.Config.FileContents, s.Config.SkipSecretInterp,
		s.Config.ExtraArgs, s.Config.Environment, s.Config.EnvFilePath,
		s.Config.Repo, s.Config.Branch, s.Config.Commit,
	}
}
