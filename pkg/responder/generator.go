package responder

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"school-chat-be/internal/pkg/logger"
	"school-chat-be/pkg/inference"
)

// OuterBudget is the total time one reply may take, independent of the
// inference client's own per-request timeout. When it fires first, the late
// inference result is discarded and the rule table answers instead. Callers
// combining a reply with classification share one budget across all calls.
const OuterBudget = 30 * time.Second

const systemPrompt = "تو دستیار پشتیبانی وب‌سایت یک دبستان هستی. کوتاه، محترمانه و فقط درباره مدرسه، کلاس‌ها، ثبت‌نام و برنامه‌ها پاسخ بده."

// Intent is a best-effort classification result.
type Intent struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// Generator produces replies and classifications. Every method degrades to
// a deterministic local result on any inference failure; none of them
// return errors.
type Generator struct {
	provider inference.Provider
	log      logger.ILogger
}

func NewGenerator(provider inference.Provider, log logger.ILogger) *Generator {
	return &Generator{
		provider: provider,
		log:      log,
	}
}

// ProcessMessage returns a reply for the (already validated) text. The
// second return reports whether the reply came from the model or from the
// rule table.
func (g *Generator) ProcessMessage(ctx context.Context, history []inference.Message, text string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, OuterBudget)
	defer cancel()

	type outcome struct {
		reply string
		err   error
	}
	// Buffered so a late result after the budget is dropped without
	// leaking the goroutine.
	ch := make(chan outcome, 1)

	go func() {
		messages := make([]inference.Message, 0, len(history)+2)
		messages = append(messages, inference.Message{Role: "system", Content: systemPrompt})
		messages = append(messages, history...)
		messages = append(messages, inference.Message{Role: "user", Content: text})

		reply, err := g.provider.Chat(ctx, messages, inference.WithTemperature(0.4))
		ch <- outcome{reply: reply, err: err}
	}()

	select {
	case out := <-ch:
		if out.err != nil || strings.TrimSpace(out.reply) == "" {
			g.warnFallback("reply", out.err)
			return FallbackReply(text), false
		}
		return strings.TrimSpace(out.reply), true
	case <-ctx.Done():
		g.warnFallback("reply", ctx.Err())
		return FallbackReply(text), false
	}
}

// AnalyzeSentiment classifies text as positive/negative/neutral, defaulting
// to neutral on any failure.
func (g *Generator) AnalyzeSentiment(ctx context.Context, text string) string {
	prompt := fmt.Sprintf(
		"احساس متن زیر را فقط با یکی از کلمات positive یا negative یا neutral مشخص کن:\n%s", text)

	out, err := g.provider.Generate(ctx, prompt, inference.WithMaxTokens(10))
	if err != nil {
		g.warnFallback("sentiment", err)
		return SentimentNeutral
	}

	switch normalized := strings.ToLower(strings.TrimSpace(out)); {
	case strings.Contains(normalized, SentimentPositive):
		return SentimentPositive
	case strings.Contains(normalized, SentimentNegative):
		return SentimentNegative
	case strings.Contains(normalized, SentimentNeutral):
		return SentimentNeutral
	default:
		return SentimentNeutral
	}
}

// DetectIntent classifies user intent, defaulting to unknown/0 on any
// failure or malformed response.
func (g *Generator) DetectIntent(ctx context.Context, text string) Intent {
	unknown := Intent{Intent: IntentUnknown, Confidence: 0}

	prompt := fmt.Sprintf(
		`نیت پیام زیر را تشخیص بده و فقط یک JSON با قالب {"intent":"...","confidence":0.0} برگردان. `+
			`نیت یکی از این‌ها است: greeting, identity, school_name, classes, schedule, registration, contact, address, social, thanks, farewell, unknown.`+
			"\nپیام: %s", text)

	out, err := g.provider.Generate(ctx, prompt, inference.WithMaxTokens(60))
	if err != nil {
		g.warnFallback("intent", err)
		return unknown
	}

	// Models sometimes wrap JSON in prose; take the first object literal.
	start := strings.Index(out, "{")
	end := strings.LastIndex(out, "}")
	if start < 0 || end <= start {
		return unknown
	}

	var parsed Intent
	if err := json.Unmarshal([]byte(out[start:end+1]), &parsed); err != nil {
		return unknown
	}
	if parsed.Intent == "" {
		return unknown
	}
	if parsed.Confidence < 0 || parsed.Confidence > 1 {
		parsed.Confidence = 0
	}
	return parsed
}

// GenerateSuggestions returns up to three follow-up prompts. Pure table
// lookup; never fails.
func (g *Generator) GenerateSuggestions(text, intent string) []string {
	return SuggestionsFor(text, intent)
}

func (g *Generator) warnFallback(stage string, err error) {
	details := map[string]interface{}{"stage": stage}
	if err != nil {
		details["error"] = err.Error()
	}
	g.log.Warn("Responder", "Inference unavailable, using rule fallback", details)
}
