package periphery

import (
	"github.com/komodo-io/komodo-core/internal/domain"
)

// json13Envelope tolerates both the current RepoActionResponse shape and the
// legacy `RepoActionResponseV1_13` shape an older Periphery agent may still
// send (spec §6 "the client must tolerate a response shape labeled
// RepoActionResponseV1_13 (legacy) and convert it to the current shape").
// The legacy shape carries `logs` but names the commit fields `hash`/`msg`
// instead of `commit_hash`/`commit_message`, per the original implementation's
// versioning convention (see DESIGN.md "Supplemented features").
type json13Envelope struct {
	Logs          []domain.Log `json:"logs"`
	CommitHash    string       `json:"commit_hash,omitempty"`
	CommitMessage string       `json:"commit_message,omitempty"`
	EnvFilePath   string       `json:"env_file_path,omitempty"`

	// Legacy field names, present only on a v1.13 agent response.
	LegacyHash    string `json:"hash,omitempty"`
	LegacyMessage string `json:"msg,omitempty"`
}

// isLegacy reports whether this envelope was populated from the legacy
// shape: the current commit_hash field is empty while the legacy hash field
// is set.
func (e json13Envelope) isLegacy() bool {
	return e.CommitHash == "" && e.LegacyHash != ""
}

func (e json13Envelope) normalize() *RepoActionResponse {
	if e.isLegacy() {
		return &RepoActionResponse{
			Logs:          e.Logs,
			CommitHash:    e.LegacyHash,
			CommitMessage: e.LegacyMessage,
			EnvFilePath:   e.EnvFilePath,
		}
	}
	return &RepoActionResponse{
		Logs:          e.Logs,
		CommitHash:    e.CommitHash,
		CommitMessage: e.CommitMessage,
		EnvFilePath:   e.EnvFilePath,
	}
}
