package search

import "testing"

func TestNamespaceFor(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"how do I improve my squat depth", NamespaceStrength},
		{"what pace should I run my 5k at", NamespaceRunning},
		{"my knee hurts and feels sore after intervals", NamespaceInjury},
		{"sharp pain and a possible strain in my shoulder", NamespaceInjury},
		{"what should I eat for breakfast", NamespaceGeneral},
		{"", NamespaceGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := NamespaceFor(tt.query); got != tt.want {
				t.Errorf("NamespaceFor(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}
