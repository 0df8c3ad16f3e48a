package messages

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueueAndType(t *testing.T) {
	tests := []struct {
		name     string
		args     string
		wantQ    string
		wantType string
	}{
		{name: "with type", args: "SCRIBE/Work:wrk-process", wantQ: "SCRIBE/Work", wantType: "wrk-process"},
		{name: "no type", args: "SCRIBE/Inform", wantQ: "SCRIBE/Inform", wantType: "SCRIBE/Inform"},
		{name: "empty", args: "", wantQ: "", wantType: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, jt := QueueAndType(tt.args)
			assert.Equal(t, tt.wantQ, q)
			assert.Equal(t, tt.wantType, jt)
		})
	}
}
