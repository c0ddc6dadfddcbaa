package genesis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestStatusTransitions は遷移表の許可・拒否をテストする
func TestStatusTransitions(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusQueued, StatusCollecting},
		{StatusCollecting, StatusProcessing},
		{StatusProcessing, StatusAwaitingApproval},
		{StatusAwaitingApproval, StatusCommitted},
		{StatusAwaitingApproval, StatusCommittedMemoryPending},
		{StatusQueued, StatusFailed},
		{StatusCollecting, StatusFailed},
		{StatusProcessing, StatusFailed},
	}
	for _, tr := range allowed {
		assert.True(t, tr.from.CanTransition(tr.to), "%s -> %s", tr.from, tr.to)
	}

	rejected := []struct{ from, to Status }{
		{StatusQueued, StatusAwaitingApproval},
		{StatusQueued, StatusCommitted},
		{StatusAwaitingApproval, StatusFailed},
		{StatusAwaitingApproval, StatusCollecting},
		{StatusCommitted, StatusFailed},
		{StatusFailed, StatusQueued},
		{StatusCommittedMemoryPending, StatusCommitted},
	}
	for _, tr := range rejected {
		assert.False(t, tr.from.CanTransition(tr.to), "%s -> %s", tr.from, tr.to)
	}
}

// TestJobTransition は不正遷移が状態を変えないことをテストする
func TestJobTransition(t *testing.T) {
	job := &Job{Status: StatusQueued}

	err := job.Transition(StatusCommitted)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StatusQueued, job.Status)

	assert.NoError(t, job.Transition(StatusCollecting))
	assert.Equal(t, StatusCollecting, job.Status)
}

// TestStatusIsTerminal は終端状態の判定をテストする
func TestStatusIsTerminal(t *testing.T) {
	assert.True(t, StatusCommitted.IsTerminal())
	assert.True(t, StatusCommittedMemoryPending.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.False(t, StatusQueued.IsTerminal())
	assert.False(t, StatusAwaitingApproval.IsTerminal())
}

// TestBuildProgress は状態ごとの進捗表示をテストする
func TestBuildProgress(t *testing.T) {
	tests := []struct {
		status  Status
		percent int
		message string
	}{
		{StatusQueued, 0, "Queued"},
		{StatusCollecting, 20, "Collecting sources"},
		{StatusProcessing, 50, "Processing corpus"},
		{StatusAwaitingApproval, 80, "Awaiting human approval"},
		{StatusCommitted, 100, "Completed"},
		{StatusCommittedMemoryPending, 100, "Completed (memory sync pending)"},
		{StatusFailed, 0, "Failed"},
	}

	for _, tt := range tests {
		progress := BuildProgress(tt.status)
		assert.Equal(t, tt.status, progress.Stage)
		assert.Equal(t, tt.percent, progress.Percent)
		assert.Equal(t, tt.message, progress.Message)
	}
}
