package monitor

import (
	"time"

	"github.com/kavachapp/kavach/internal/dispatch"
	"github.com/kavachapp/kavach/internal/fusion"
	"github.com/kavachapp/kavach/internal/keyword"
)

// EventType identifies what happened inside a monitoring session.
type EventType int

const (
	// EventThreatLevelChanged reports a fused threat level transition.
	EventThreatLevelChanged EventType = iota

	// EventTranscriptDetected reports one finalized transcript, with the
	// keyword analysis result attached.
	EventTranscriptDetected

	// EventDispatchAttempted reports one emergency action attempt.
	EventDispatchAttempted

	// EventCountdownTick reports one countdown second elapsing.
	EventCountdownTick

	// EventCountdownCancelled reports a successful countdown cancellation.
	EventCountdownCancelled

	// EventCountdownExpired reports the countdown reaching zero.
	EventCountdownExpired
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventThreatLevelChanged:
		return "threat_level_changed"
	case EventTranscriptDetected:
		return "transcript_detected"
	case EventDispatchAttempted:
		return "dispatch_attempted"
	case EventCountdownTick:
		return "countdown_tick"
	case EventCountdownCancelled:
		return "countdown_cancelled"
	case EventCountdownExpired:
		return "countdown_expired"
	default:
		return "unknown"
	}
}

// Event is one notification from a monitoring session. Only the fields
// relevant to Type are populated.
type Event struct {
	Type      EventType
	SessionID string
	Timestamp time.Time

	// Assessment accompanies EventThreatLevelChanged.
	Assessment fusion.Assessment

	// Transcript and Keyword accompany EventTranscriptDetected.
	Transcript string
	Keyword    keyword.Match

	// Action accompanies EventDispatchAttempted.
	Action dispatch.Action

	// Remaining accompanies EventCountdownTick.
	Remaining int
}
