package search

import "strings"

// Search namespaces. Exercises live in their own namespace; knowledge-base
// content is split by topic so retrieval stays on-subject.
const (
	NamespaceExercises = "exercises"
	NamespaceStrength  = "kb-strength"
	NamespaceRunning   = "kb-running"
	NamespaceInjury    = "kb-injury"
	NamespaceGeneral   = "kb-general"
)

// topicKeywords routes a free-form question to a knowledge namespace. This
// is a cheap pre-filter, not classification: the LLM sees the retrieved
// chunks either way, and a wrong namespace only costs retrieval quality.
var topicKeywords = map[string][]string{
	NamespaceStrength: {"squat", "bench", "deadlift", "press", "lift", "weight", "rep", "set", "hypertrophy", "strength"},
	NamespaceRunning:  {"run", "pace", "mile", "5k", "10k", "marathon", "tempo", "interval", "cadence"},
	NamespaceInjury:   {"pain", "injury", "injured", "hurt", "sore", "strain", "sprain", "tendon", "recovery", "rehab"},
}

// NamespaceFor picks the knowledge namespace for a query by keyword vote,
// defaulting to NamespaceGeneral.
func NamespaceFor(query string) string {
	lower := strings.ToLower(query)

	best, bestHits := NamespaceGeneral, 0
	for ns, keywords := range topicKeywords {
		hits := 0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = ns, hits
		}
	}
	return best
}
