package messages

import (
	"strings"

	amessages "github.com/airenas/async-api/pkg/messages"
)

const (
	st = "SCRIBE/"
	// Work queue name
	Work = st + "Work"
	// Inform queue name
	Inform = st + "Inform"

	// ProcessType is the pipeline job type on the Work queue
	ProcessType = "wrk-process"
	// FailType is the failure job type on the Work queue
	FailType = "wrk-fail"

	// Process destination starts the pipeline for a consultation
	Process = Work + ":" + ProcessType
	// Fail destination marks a consultation failed
	Fail = Work + ":" + FailType
)

// ProcessMessage triggers the consultation pipeline for one record
type ProcessMessage struct {
	amessages.QueueMessage
}

// FailureMessage marks a consultation failed
type FailureMessage struct {
	amessages.QueueMessage
	Error string `json:"error,omitempty"`
}

// QueueAndType splits a `queue:jobType` destination string.
// A destination without a job type uses the queue name as the type.
func QueueAndType(dest string) (string, string) {
	if q, t, found := strings.Cut(dest, ":"); found {
		return q, t
	}
	return dest, dest
}
