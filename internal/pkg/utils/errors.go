package utils

// ErrNoRecord indicates a missing DB record
// handlers map it to 404, the pipeline treats it as a hard failure
type ErrNoRecord struct {
	ID string
}

// NewErrNoRecord creates the error
func NewErrNoRecord(id string) error {
	return &ErrNoRecord{ID: id}
}

func (e *ErrNoRecord) Error() string {
	return "no record by ID " + e.ID
}
