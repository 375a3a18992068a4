package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestChat_InputValidation(t *testing.T) {
	c := NewCoach(nil, nil, nil, nil, 0.3, 1024, nil)
	ctx := context.Background()

	if _, err := c.Chat(ctx, uuid.New(), "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("blank message error = %v, want ErrEmptyMessage", err)
	}
	if _, err := c.Chat(ctx, uuid.New(), strings.Repeat("a", MaxMessageLen+1)); !errors.Is(err, ErrMessageTooLong) {
		t.Errorf("oversized message error = %v, want ErrMessageTooLong", err)
	}
}
