package lifecycle

import "time"

// phaseInterval is how long each progress message is shown. The sequence
// is purely presentational and never feeds back into polling decisions.
const phaseInterval = 15 * time.Second

var phaseMessages = []string{
	"Starting translation",
	"Reading your document",
	"Analyzing layout",
	"Detecting language structure",
	"Extracting text",
	"Preparing terminology",
	"Translating content",
	"Translating content",
	"Reviewing terminology",
	"Refining sentence flow",
	"Polishing translation",
	"Checking formatting",
	"Restoring document layout",
	"Running quality checks",
	"Finalizing translation",
	"Almost there",
}

// PhaseMessage returns the progress message for an elapsed duration. Past
// the end of the sequence (about four minutes in) the last message sticks.
func PhaseMessage(elapsed time.Duration) string {
	if elapsed < 0 {
		elapsed = 0
	}
	idx := int(elapsed / phaseInterval)
	if idx >= len(phaseMessages) {
		idx = len(phaseMessages) - 1
	}
	return phaseMessages[idx]
}

// Elapsed computes how long a job has been running, frozen at the moment
// the job reached a terminal state.
func Elapsed(createdAt time.Time, completedAt *time.Time, now time.Time) time.Duration {
	if createdAt.IsZero() {
		return 0
	}
	end := now
	if completedAt != nil {
		end = *completedAt
	}
	if end.Before(createdAt) {
		return 0
	}
	return end.Sub(createdAt)
}
