package notes

import (
	"encoding/json"
	"strings"
)

// Placeholder marks a section the transcript did not mention
const Placeholder = "Not mentioned"

// Note is the four-section clinical note
type Note struct {
	Subjective string `json:"subjective"`
	Objective  string `json:"objective"`
	Assessment string `json:"assessment"`
	Plan       string `json:"plan"`
}

// Result is a tagged parse outcome. A malformed service response yields
// Parsed == false with every section set to the placeholder - it must not
// discard a successful transcription.
type Result struct {
	Note   Note
	Parsed bool
}

// Parse extracts the note JSON object from a model reply.
// Replies often wrap the object into prose or markdown fences.
func Parse(content string) *Result {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return Unparseable()
	}
	var note Note
	if err := json.Unmarshal([]byte(content[start:end+1]), &note); err != nil {
		return Unparseable()
	}
	fillEmpty(&note)
	return &Result{Note: note, Parsed: true}
}

// Unparseable returns the all-placeholder result
func Unparseable() *Result {
	return &Result{Note: Note{Subjective: Placeholder, Objective: Placeholder,
		Assessment: Placeholder, Plan: Placeholder}}
}

// Render concatenates the sections into one display-ready block
// with fixed headers in fixed order
func (r *Result) Render() string {
	var sb strings.Builder
	sb.WriteString("Subjective:\n" + strings.TrimSpace(r.Note.Subjective) + "\n\n")
	sb.WriteString("Objective:\n" + strings.TrimSpace(r.Note.Objective) + "\n\n")
	sb.WriteString("Assessment:\n" + strings.TrimSpace(r.Note.Assessment) + "\n\n")
	sb.WriteString("Plan:\n" + strings.TrimSpace(r.Note.Plan))
	return sb.String()
}

func fillEmpty(note *Note) {
	if strings.TrimSpace(note.Subjective) == "" {
		note.Subjective = Placeholder
	}
	if strings.TrimSpace(note.Objective) == "" {
		note.Objective = Placeholder
	}
	if strings.TrimSpace(note.Assessment) == "" {
		note.Assessment = Placeholder
	}
	if strings.TrimSpace(note.Plan) == "" {
		note.Plan = Placeholder
	}
}
