package notes

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		args       string
		want       Note
		wantParsed bool
	}{
		{name: "plain", args: `{"subjective":"s","objective":"o","assessment":"a","plan":"p"}`,
			want: Note{Subjective: "s", Objective: "o", Assessment: "a", Plan: "p"}, wantParsed: true},
		{name: "wrapped", args: "Here is the note:\n```json\n{\"subjective\":\"s\",\"objective\":\"o\",\"assessment\":\"a\",\"plan\":\"p\"}\n```",
			want: Note{Subjective: "s", Objective: "o", Assessment: "a", Plan: "p"}, wantParsed: true},
		{name: "missing sections", args: `{"subjective":"vomiting since Tuesday"}`,
			want: Note{Subjective: "vomiting since Tuesday", Objective: Placeholder,
				Assessment: Placeholder, Plan: Placeholder}, wantParsed: true},
		{name: "no object", args: "sorry, I can't do that",
			want: Note{Subjective: Placeholder, Objective: Placeholder,
				Assessment: Placeholder, Plan: Placeholder}, wantParsed: false},
		{name: "broken json", args: `{"subjective": olia}`,
			want: Note{Subjective: Placeholder, Objective: Placeholder,
				Assessment: Placeholder, Plan: Placeholder}, wantParsed: false},
		{name: "empty", args: "",
			want: Note{Subjective: Placeholder, Objective: Placeholder,
				Assessment: Placeholder, Plan: Placeholder}, wantParsed: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.args)
			assert.Equal(t, tt.want, got.Note)
			assert.Equal(t, tt.wantParsed, got.Parsed)
		})
	}
}

func TestRender_Order(t *testing.T) {
	res := Parse(`{"subjective":"s1","objective":"o1","assessment":"a1","plan":"p1"}`)
	out := res.Render()
	iS := strings.Index(out, "Subjective:")
	iO := strings.Index(out, "Objective:")
	iA := strings.Index(out, "Assessment:")
	iP := strings.Index(out, "Plan:")
	assert.True(t, iS >= 0 && iS < iO && iO < iA && iA < iP, out)
	assert.Contains(t, out, "s1")
	assert.Contains(t, out, "p1")
}

func TestRender_Unparseable(t *testing.T) {
	out := Unparseable().Render()
	assert.Equal(t, 4, strings.Count(out, Placeholder))
	assert.Contains(t, out, "Subjective:\n"+Placeholder)
	assert.Contains(t, out, "Plan:\n"+Placeholder)
}
