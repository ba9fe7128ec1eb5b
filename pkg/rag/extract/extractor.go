package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"ai-act-advisor-be/internal/pkg/logger"
	"ai-act-advisor-be/pkg/llm"
	"ai-act-advisor-be/pkg/rag/prompt"
	"ai-act-advisor-be/pkg/rag/schema"
	"ai-act-advisor-be/pkg/store"
)

var (
	fenceRe  = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	objectRe = regexp.MustCompile(`(?s)\{.*\}`)
)

// Values the model uses to say "not answered".
var emptyValues = map[string]struct{}{
	"": {}, "unknown": {}, "n/a": {}, "na": {}, "none provided": {}, "not specified": {},
	"not mentioned": {}, "null": {},
}

// Extractor fills schema fields from a free-text answer via the model.
type Extractor struct {
	llm         llm.LLMProvider
	builder     prompt.Builder
	temperature float64
	maxTokens   int
	logger      logger.ILogger
}

func NewExtractor(provider llm.LLMProvider, builder prompt.Builder, temperature float64, maxTokens int, log logger.ILogger) *Extractor {
	return &Extractor{
		llm:         provider,
		builder:     builder,
		temperature: temperature,
		maxTokens:   maxTokens,
		logger:      log,
	}
}

// Extract returns only fields that are in the schema and still unset on the
// session. Unusable model output yields an empty map; an unreachable model is
// returned as an error wrapping llm.ErrInference.
func (e *Extractor) Extract(ctx context.Context, session *store.Session, utterance string) (map[string]string, error) {
	if len(e.builder.Schema().Missing(session.CollectedFields)) == 0 {
		return map[string]string{}, nil
	}

	raw, err := e.llm.Generate(ctx, e.builder.ExtractionPrompt(session, utterance),
		llm.WithTemperature(e.temperature),
		llm.WithMaxTokens(e.maxTokens),
	)
	if err != nil {
		return nil, fmt.Errorf("field extraction: %w", err)
	}

	fields, err := Parse(raw, e.builder.Schema(), session.CollectedFields)
	if err != nil {
		e.logger.Warn("EXTRACT", "Unusable extraction output", map[string]interface{}{
			"session_id": session.ID,
			"error":      err.Error(),
			"raw":        truncate(raw, 200),
		})
		return map[string]string{}, nil
	}

	e.logger.Debug("EXTRACT", "Fields extracted", map[string]interface{}{
		"session_id": session.ID,
		"count":      len(fields),
	})
	return fields, nil
}

// Parse decodes the model's JSON answer, tolerating code fences and prose
// around the object. Non-string values are stringified.
func Parse(raw string, s schema.Schema, existing map[string]string) (map[string]string, error) {
	body := strings.TrimSpace(raw)
	if m := fenceRe.FindStringSubmatch(body); m != nil {
		body = strings.TrimSpace(m[1])
	}
	if !strings.HasPrefix(body, "{") {
		body = objectRe.FindString(body)
	}
	if body == "" {
		return nil, fmt.Errorf("no JSON object in output")
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		return nil, fmt.Errorf("decode extraction JSON: %w", err)
	}

	out := make(map[string]string)
	for k, v := range decoded {
		key := strings.ToLower(strings.TrimSpace(k))
		if !s.Has(key) || schema.IsSet(existing, key) {
			continue
		}
		val := stringify(v)
		if _, empty := emptyValues[strings.ToLower(val)]; empty {
			continue
		}
		out[key] = val
	}
	return out, nil
}

func stringify(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case []interface{}:
		parts := make([]string, 0, len(x))
		for _, p := range x {
			if s := stringify(p); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case bool:
		if x {
			return "yes"
		}
		return "no"
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
