package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPhaseMessageAdvancesOnCadence(t *testing.T) {
	assert.Equal(t, phaseMessages[0], PhaseMessage(0))
	assert.Equal(t, phaseMessages[0], PhaseMessage(14*time.Second))
	assert.Equal(t, phaseMessages[1], PhaseMessage(15*time.Second))
	assert.Equal(t, phaseMessages[2], PhaseMessage(31*time.Second))
}

func TestPhaseMessageClampsToLastPhase(t *testing.T) {
	last := phaseMessages[len(phaseMessages)-1]
	assert.Equal(t, last, PhaseMessage(241*time.Second))
	assert.Equal(t, last, PhaseMessage(2*time.Hour))
}

func TestPhaseMessageNegativeElapsed(t *testing.T) {
	assert.Equal(t, phaseMessages[0], PhaseMessage(-time.Second))
}

func TestElapsedTicksWhileRunning(t *testing.T) {
	createdAt := time.Now().Add(-42 * time.Second)
	elapsed := Elapsed(createdAt, nil, time.Now())
	assert.InDelta(t, 42, elapsed.Seconds(), 1)
}

func TestElapsedFreezesAtTerminalStatus(t *testing.T) {
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	completedAt := createdAt.Add(90 * time.Second)
	now := createdAt.Add(10 * time.Minute)

	elapsed := Elapsed(createdAt, &completedAt, now)
	assert.Equal(t, 90*time.Second, elapsed)
}

func TestElapsedZeroForMissingCreatedAt(t *testing.T) {
	assert.Zero(t, Elapsed(time.Time{}, nil, time.Now()))
}
