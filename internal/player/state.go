package player

import "strconv"

// State is a widget playback state, numbered as the IFrame API reports it.
type State int

const (
	StateUnstarted State = -1
	StateEnded     State = 0
	StatePlaying   State = 1
	StatePaused    State = 2
	StateBuffering State = 3
	StateCued      State = 5
)

func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateEnded:
		return "ended"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateBuffering:
		return "buffering"
	case StateCued:
		return "cued"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// ParseState maps a numeric widget state. Unknown values are reported as not ok.
func ParseState(n int) (State, bool) {
	switch s := State(n); s {
	case StateUnstarted, StateEnded, StatePlaying, StatePaused, StateBuffering, StateCued:
		return s, true
	}
	return 0, false
}

// ErrorReason describes an IFrame error code.
func ErrorReason(code int) string {
	switch code {
	case 2:
		return "invalid parameter"
	case 5:
		return "HTML5 player error"
	case 100:
		return "video not found or private"
	case 101, 150:
		return "embedding not allowed"
	default:
		return "player error " + strconv.Itoa(code)
	}
}
