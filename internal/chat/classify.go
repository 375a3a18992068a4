package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Zchasse63/voice-fit-sub003/internal/llm"
)

// Intents a user message can be classified into.
const (
	IntentLogWorkout   = "log_workout"
	IntentAskQuestion  = "ask_question"
	IntentReportInjury = "report_injury"
	IntentSmalltalk    = "smalltalk"
)

const classifyPrompt = `Classify the user's message into exactly one intent.
Intents:
- log_workout: the user describes exercise they performed (sets, reps, runs).
- ask_question: the user asks for training, nutrition or recovery advice.
- report_injury: the user mentions pain, injury or physical discomfort.
- smalltalk: greetings, thanks, anything else.
Respond with a single JSON object: {"intent":"<one of the four>"}`

// keywordRules back the classifier when no provider is reachable. Ordered:
// injury terms win over workout terms because "my knee hurt during squats"
// should surface the injury.
var keywordRules = []struct {
	intent   string
	keywords []string
}{
	{IntentReportInjury, []string{"pain", "hurt", "injur", "sore", "strain", "sprain", "ache", "tweak"}},
	{IntentLogWorkout, []string{"sets", "reps", "did ", "lifted", "benched", "squatted", "ran ", "workout", "km", "miles"}},
	{IntentAskQuestion, []string{"how ", "what ", "why ", "should i", "can i", "?"}},
}

// Classifier assigns an intent to a user message, preferring the LLM and
// degrading to keyword rules so classification never hard-fails.
type Classifier struct {
	client llm.Client
	logger *slog.Logger
}

func NewClassifier(client llm.Client, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{client: client, logger: logger.With("component", "classifier")}
}

// Classification reports the chosen intent and which path produced it.
type Classification struct {
	Intent   string `json:"intent"`
	Fallback bool   `json:"fallback"` // true when keyword rules decided
}

// Classify never returns a provider error: if the LLM is unavailable or
// returns garbage, keyword rules decide instead.
func (c *Classifier) Classify(ctx context.Context, message string) Classification {
	out, err := c.client.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: classifyPrompt},
			{Role: llm.RoleUser, Content: message},
		},
		Temperature: 0,
		MaxTokens:   32,
		JSONOnly:    true,
	})
	if err == nil {
		var resp struct {
			Intent string `json:"intent"`
		}
		if jerr := llm.ExtractJSON(out, &resp); jerr == nil {
			if intent, ok := normalizeIntent(resp.Intent); ok {
				return Classification{Intent: intent}
			}
		}
		c.logger.Warn("classifier returned unknown intent, using keyword rules",
			"raw", fmt.Sprintf("%.80s", out))
	} else {
		c.logger.Warn("classifier providers unavailable, using keyword rules", "error", err)
	}
	return Classification{Intent: classifyByKeywords(message), Fallback: true}
}

func normalizeIntent(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case IntentLogWorkout:
		return IntentLogWorkout, true
	case IntentAskQuestion:
		return IntentAskQuestion, true
	case IntentReportInjury:
		return IntentReportInjury, true
	case IntentSmalltalk:
		return IntentSmalltalk, true
	}
	return "", false
}

func classifyByKeywords(message string) string {
	lower := strings.ToLower(message)
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.intent
			}
		}
	}
	return IntentSmalltalk
}
