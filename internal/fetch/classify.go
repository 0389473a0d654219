package fetch

import (
	"encoding/json"
	"slices"
)

// Verdict is what the fetch loop does with a response.
type Verdict int

const (
	Accept Verdict = iota // store and return the body
	Rotate                // credential spent; advance and retry
	Abort                 // give up; the source is unavailable
)

func (v Verdict) String() string {
	switch v {
	case Accept:
		return "accept"
	case Rotate:
		return "rotate"
	default:
		return "abort"
	}
}

// Classifier decides what a response means for the credential loop.
type Classifier interface {
	Classify(status int, body []byte) Verdict
}

// ClassifierFunc adapts a function to [Classifier].
type ClassifierFunc func(status int, body []byte) Verdict

func (f ClassifierFunc) Classify(status int, body []byte) Verdict { return f(status, body) }

var (
	DefaultRotateStatuses = []int{401, 403}
	DefaultQuotaReasons   = []string{"quotaExceeded", "dailyLimitExceeded", "rateLimitExceeded", "keyInvalid"}
)

// apiError is the Google API error envelope.
type apiError struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Errors  []struct {
			Reason string `json:"reason"`
			Domain string `json:"domain"`
		} `json:"errors"`
	} `json:"error"`
}

// StatusClassifier rotates on configured statuses and on error payloads whose reason is a quota reason,
// including payloads delivered with a 2xx status.
type StatusClassifier struct {
	RotateStatuses []int
	QuotaReasons   []string
}

// NewClassifier builds a [StatusClassifier], falling back to the defaults for empty lists.
func NewClassifier(statuses []int, reasons []string) *StatusClassifier {
	if len(statuses) == 0 {
		statuses = DefaultRotateStatuses
	}
	if len(reasons) == 0 {
		reasons = DefaultQuotaReasons
	}
	return &StatusClassifier{RotateStatuses: statuses, QuotaReasons: reasons}
}

func (c *StatusClassifier) Classify(status int, body []byte) Verdict {
	if slices.Contains(c.RotateStatuses, status) {
		return Rotate
	}

	var env apiError
	if err := json.Unmarshal(body, &env); err != nil {
		return Abort
	}

	if env.Error != nil {
		if slices.Contains(c.QuotaReasons, env.Error.Status) {
			return Rotate
		}
		for _, e := range env.Error.Errors {
			if slices.Contains(c.QuotaReasons, e.Reason) {
				return Rotate
			}
		}
		return Abort
	}

	if status < 200 || status >= 300 {
		return Abort
	}
	return Accept
}
