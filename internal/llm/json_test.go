package llm

import (
	"errors"
	"testing"
)

type parsePayload struct {
	Intent string `json:"intent"`
	Count  int    `json:"count"`
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    parsePayload
		wantErr bool
	}{
		{
			name:  "clean object",
			input: `{"intent":"log_workout","count":3}`,
			want:  parsePayload{Intent: "log_workout", Count: 3},
		},
		{
			name:  "code fence",
			input: "```json\n{\"intent\":\"ask_question\",\"count\":1}\n```",
			want:  parsePayload{Intent: "ask_question", Count: 1},
		},
		{
			name:  "bare code fence",
			input: "```\n{\"intent\":\"smalltalk\",\"count\":0}\n```",
			want:  parsePayload{Intent: "smalltalk", Count: 0},
		},
		{
			name:  "leading prose",
			input: `Here is the result: {"intent":"report_injury","count":2} hope that helps!`,
			want:  parsePayload{Intent: "report_injury", Count: 2},
		},
		{
			name:  "trailing comma",
			input: `{"intent":"log_workout","count":5,}`,
			want:  parsePayload{Intent: "log_workout", Count: 5},
		},
		{
			name:    "empty",
			input:   "   ",
			wantErr: true,
		},
		{
			name:    "no object at all",
			input:   "sorry, I cannot help with that",
			wantErr: true,
		},
		{
			name:    "broken object",
			input:   `{"intent": "log_workout", "count": `,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got parsePayload
			err := ExtractJSON(tt.input, &got)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ExtractJSON(%q) = nil error, want error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractJSON(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ExtractJSON(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestExtractJSON_NoObjectIsErrNoJSON(t *testing.T) {
	var v parsePayload
	if err := ExtractJSON("no json here", &v); !errors.Is(err, ErrNoJSON) {
		t.Errorf("ExtractJSON() error = %v, want ErrNoJSON", err)
	}
}
