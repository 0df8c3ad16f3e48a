package status

// Status represents consultation processing status
type Status int

const (
	// Processing - initial value, set by the upload gateway
	Processing Status = iota + 1
	// Completed - terminal value, pipeline succeeded
	Completed
	// Failed - terminal value, pipeline failed
	Failed
)

var (
	statusName = map[Status]string{Processing: "processing", Completed: "completed",
		Failed: "failed"}
	nameStatus = map[string]Status{"processing": Processing, "completed": Completed,
		"failed": Failed}
)

func (st Status) String() string {
	return statusName[st]
}

// From returns status obj from string
func From(st string) Status {
	return nameStatus[st]
}

// IsTerminal indicates the pipeline may not transition out of st
func IsTerminal(st string) bool {
	s := From(st)
	return s == Completed || s == Failed
}
