package domain

import "time"

// UpdateStatus is the lifecycle state of an Update row.
type UpdateStatus string

const (
	UpdateQueued     UpdateStatus = "Queued"
	UpdateInProgress UpdateStatus = "InProgress"
	UpdateComplete   UpdateStatus = "Complete"
)

// Log is one stage of an Update's execution trail (spec §3).
type Log struct {
	Stage   string    `json:"stage"`
	Command string    `json:"command,omitempty"`
	Stdout  string    `json:"stdout,omitempty"`
	Stderr  string    `json:"stderr,omitempty"`
	Success bool      `json:"success"`
	StartTs time.Time `json:"start_ts"`
	EndTs   time.Time `json:"end_ts"`
}

// Update is the append-only, write-once-identity record of one operation
// (spec §3, §4.3). Logs are appended during execution; Finalize computes
// Success and closes it out.
type Update struct {
	Id         string       `json:"id"`
	Target     Target       `json:"target"`
	Operation  string       `json:"operation"`
	Status     UpdateStatus `json:"status"`
	Success    bool         `json:"success"`
	StartTs    time.Time    `json:"start_ts"`
	EndTs      time.Time    `json:"end_ts"`
	Operator   string       `json:"operator"`
	Version    string       `json:"version,omitempty"`
	CommitHash string       `json:"commit_hash,omitempty"`
	Logs       []Log        `json:"logs"`
}

// AppendLog appends one Log entry, preserving insertion order (spec §5
// "Ordering").
func (u *Update) AppendLog(l Log) {
	u.Logs = append(u.Logs, l)
}

// Finalize computes success = all(logs[i].success), sets EndTs and status
// (spec §4.3).
func (u *Update) Finalize(now time.Time) {
	success := true
	for _, l := range u.Logs {
		if !l.Success {
			success = false
			break
		}
	}
	u.Success = success
	u.EndTs = now
	u.Status = UpdateComplete
}
