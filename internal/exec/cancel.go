package exec

import (
	"sync"
	"time"
)

// cancelMsg is one (repo-or-build-id, update) pair broadcast on the cancel
// channel (spec §4.3).
type cancelMsg struct {
	targetId string
	updateId string
}

// cancelBroadcaster is the process-wide Build cancellation broadcast (spec
// §4.3, §5 "repo-build cancel broadcast is a fan-out channel with a
// separate sender mutex"). A running build subscribes before starting;
// CancelRepoBuild/CancelBuild publish to it.
type cancelBroadcaster struct {
	mu          sync.Mutex
	subscribers map[chan cancelMsg]bool
}

func newCancelBroadcaster() *cancelBroadcaster {
	return &cancelBroadcaster{subscribers: make(map[chan cancelMsg]bool)}
}

func (b *cancelBroadcaster) subscribe() chan cancelMsg {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan cancelMsg, 1)
	b.subscribers[ch] = true
	return ch
}

func (b *cancelBroadcaster) unsubscribe(ch chan cancelMsg) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
}

// publish fans out msg to every current subscriber without blocking on a
// full buffer (best-effort: "may arrive after the point-of-no-return",
// spec §5 "Cancellation").
func (b *cancelBroadcaster) publish(msg cancelMsg) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers {
		select {
		case ch <- msg:
		default:
		}
	}
}

// forcedReleaseAfter schedules release (typically a guard.Release plus
// Update finalize) to run after d if it hasn't already, guaranteeing a
// CancelRepoBuild update row never stays InProgress forever when no
// in-flight build consumes the cancel signal (spec §4.3, "60 s").
func forcedReleaseAfter(d time.Duration, release func()) (cancelTimer func()) {
	var once sync.Once
	timer := time.AfterFunc(d, func() { once.Do(release) })
	return func() {
		once.Do(release)
		timer.Stop()
	}
}
