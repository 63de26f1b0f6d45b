package domain

// State is the derived, cached run state shared by Deployment/Stack/Build
// containers (spec §3 "Stack/Deployment/Build state").
type State string

const (
	StateRunning     State = "Running"
	StatePaused      State = "Paused"
	StateStopped     State = "Stopped"
	StateCreated     State = "Created"
	StateRestarting  State = "Restarting"
	StateDead        State = "Dead"
	StateRemoving    State = "Removing"
	StateUnhealthy   State = "Unhealthy"
	StateDown        State = "Down"
	StateNotDeployed State = "NotDeployed"
	StateUnknown     State = "Unknown"
)
