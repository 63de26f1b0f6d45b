package exec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAlertSink struct {
	received []Alert
}

func (f *fakeAlertSink) Send(a Alert) { f.received = append(f.received, a) }

func TestRaiseCriticalSendsThroughConfiguredSink(t *testing.T) {
	e := newTestEngine(t)
	sink := &fakeAlertSink{}
	e.WithAlerter(sink)

	e.raiseCritical("disk full")

	require.Len(t, sink.received, 1)
	assert.Equal(t, SeverityCritical, sink.received[0].Severity)
	assert.Equal(t, "disk full", sink.received[0].Message)
}

func TestRaiseWarningAndOkSendThroughSink(t *testing.T) {
	e := newTestEngine(t)
	sink := &fakeAlertSink{}
	e.WithAlerter(sink)

	e.raiseWarning("slow response")
	e.raiseOk("back to normal")

	require.Len(t, sink.received, 2)
	assert.Equal(t, SeverityWarning, sink.received[0].Severity)
	assert.Equal(t, SeverityOk, sink.received[1].Severity)
}

func TestRaiseWithoutSinkDoesNotPanic(t *testing.T) {
	e := newTestEngine(t)
	assert.NotPanics(t, func() {
		e.raiseCritical("no sink configured")
		e.raiseWarning("no sink configured")
		e.raiseOk("no sink configured")
	})
}
