package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	PillarCount    = 8
	TasksPerPillar = 8
)

// InvalidResponseError means the model replied with text that could not be
// turned into the expected structure. Raw holds the reply for logging.
type InvalidResponseError struct {
	Raw    string
	Reason string
}

func (e *InvalidResponseError) Error() string {
	return "invalid AI response: " + e.Reason
}

func invalid(raw, format string, args ...any) error {
	return &InvalidResponseError{Raw: raw, Reason: fmt.Sprintf(format, args...)}
}

// ParsePillars reads exactly 8 non-empty pillar names.
func ParsePillars(raw string) ([]string, error) {
	var pillars []string
	if err := decodeLenient(raw, &pillars); err != nil {
		return nil, invalid(raw, "pillars are not a JSON array of strings: %v", err)
	}
	if len(pillars) != PillarCount {
		return nil, invalid(raw, "got %d pillars, want %d", len(pillars), PillarCount)
	}
	for i, p := range pillars {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, invalid(raw, "pillar %d is empty", i)
		}
		pillars[i] = p
	}
	return pillars, nil
}

// ParseTasks reads 8 tasks for every pillar. The reply may be a bare object
// keyed by pillar name or wrapped in {"tasks": {...}}. Keys are matched
// exactly first, then case-insensitively after trimming.
func ParseTasks(raw string, pillars []string) (map[string][]string, error) {
	var envelope struct {
		Tasks map[string][]string `json:"tasks"`
	}
	byName := map[string][]string{}
	if err := decodeLenient(raw, &envelope); err == nil && len(envelope.Tasks) > 0 {
		byName = envelope.Tasks
	} else if err := decodeLenient(raw, &byName); err != nil {
		return nil, invalid(raw, "tasks are not a JSON object: %v", err)
	}

	folded := make(map[string][]string, len(byName))
	for k, v := range byName {
		folded[strings.ToLower(strings.TrimSpace(k))] = v
	}

	out := make(map[string][]string, len(pillars))
	for _, pillar := range pillars {
		tasks, ok := byName[pillar]
		if !ok {
			tasks, ok = folded[strings.ToLower(strings.TrimSpace(pillar))]
		}
		if !ok {
			return nil, invalid(raw, "missing tasks for pillar %q", pillar)
		}
		if len(tasks) != TasksPerPillar {
			return nil, invalid(raw, "pillar %q has %d tasks, want %d", pillar, len(tasks), TasksPerPillar)
		}
		cleaned := make([]string, len(tasks))
		for i, t := range tasks {
			t = strings.TrimSpace(t)
			if t == "" {
				return nil, invalid(raw, "pillar %q task %d is empty", pillar, i)
			}
			cleaned[i] = t
		}
		out[pillar] = cleaned
	}
	return out, nil
}

// decodeLenient strips markdown fences and, when the text is not JSON on its
// own, retries with the first balanced array or object found in it.
func decodeLenient(raw string, v any) error {
	text := stripFences(raw)
	err := json.Unmarshal([]byte(text), v)
	if err == nil {
		return nil
	}
	if extracted := extractJSON(text); extracted != "" && extracted != text {
		return json.Unmarshal([]byte(extracted), v)
	}
	return err
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the language tag line, e.g. ```json
		s = s[nl+1:]
	}
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

// extractJSON returns the first balanced [...] or {...} span, honouring
// string literals and escapes.
func extractJSON(s string) string {
	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
