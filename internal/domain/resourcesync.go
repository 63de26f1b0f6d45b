package domain

// ResourceSyncConfig has three mutually-exclusive source modes plus
// filtering/management flags (spec §3, §4.8).
type ResourceSyncConfig struct {
	// Source: exactly one of the three should be non-empty/true.
	FileContents string `json:"file_contents,omitempty"`
	FilesOnHost  bool   `json:"files_on_host,omitempty"`
	ResourcePath string `json:"resource_path,omitempty"` // used when FilesOnHost
	Repo         string `json:"repo,omitempty"`
	Branch       string `json:"branch,omitempty"`
	Commit       string `json:"commit,omitempty"`
	GitProvider  string `json:"git_provider,omitempty"`
	GitAccount   string `json:"git_account,omitempty"`

	Managed           bool     `json:"managed,omitempty"`
	Delete            bool     `json:"delete,omitempty"`
	MatchTags         []string `json:"match_tags,omitempty"`
	MatchResourceType string   `json:"match_resource_type,omitempty"`
	MatchResources    []string `json:"match_resources,omitempty"`

	WebhookEnabled bool   `json:"webhook_enabled,omitempty"`
	WebhookSecret  string `json:"webhook_secret,omitempty"`
}

// SourceMode identifies which of the three source modes a sync uses.
type SourceMode string

const (
	SourceInline  SourceMode = "file_contents"
	SourceHostDir SourceMode = "files_on_host"
	SourceRepo    SourceMode = "repo"
)

// Mode returns which source mode this sync's config selects.
func (c ResourceSyncConfig) Mode() SourceMode {
	switch {
	case c.FileContents != "":
		return SourceInline
	case c.FilesOnHost:
		return SourceHostDir
	default:
		return SourceRepo
	}
}

type ResourceSyncInfo struct {
	LastSyncHash    string `json:"last_sync_hash,omitempty"`
	LastSyncMessage string `json:"last_sync_message,omitempty"`
	LastSyncAt      int64  `json:"last_sync_at,omitempty"`
	LastSyncSuccess bool   `json:"last_sync_success"`
}

type ResourceSync struct {
	Meta
	Config ResourceSyncConfig `json:"config"`
	Info   ResourceSyncInfo   `json:"info"`
}
