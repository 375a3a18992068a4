package voice

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestParse_TranscriptValidation(t *testing.T) {
	p := NewParser(nil, nil, nil, nil, 0.3, 1024, nil)
	ctx := context.Background()

	if _, err := p.Parse(ctx, uuid.New(), "   ", false); !errors.Is(err, ErrEmptyTranscript) {
		t.Errorf("blank transcript error = %v, want ErrEmptyTranscript", err)
	}

	long := strings.Repeat("bench press ", MaxTranscriptLen/10)
	if _, err := p.Parse(ctx, uuid.New(), long, false); !errors.Is(err, ErrTranscriptTooLong) {
		t.Errorf("oversized transcript error = %v, want ErrTranscriptTooLong", err)
	}
}
