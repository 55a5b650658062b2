package plan

import (
	"encoding/json"
	"fmt"
)

// The normalizer is the single place where unreliable model output shapes
// are absorbed. Model responses arrive either as already-typed records
// (internal callers, tests) or as generic map[string]any (decoded JSON from
// the LLM boundary). The shape is discriminated once and routed to one of
// two extraction paths; downstream code never duck-types field access.

// NormalizePlan coerces a model-produced value into a canonical Plan.
// Accepted shapes: *Plan, Plan, map[string]any. Optional fields default
// (empty string, empty slice, zero iteration). A missing, mistyped, or
// empty topic list is a schema violation.
//
// Normalizing an already-canonical plan yields an equal plan.
func NormalizePlan(v any) (*Plan, error) {
	switch src := v.(type) {
	case *Plan:
		if src == nil {
			return nil, newSchemaError("plan", "topics", "nil plan")
		}
		return normalizeTypedPlan(src)
	case Plan:
		return normalizeTypedPlan(&src)
	case map[string]any:
		return planFromMap(src)
	default:
		return nil, newSchemaError("plan", "", fmt.Sprintf("unsupported shape %T", v))
	}
}

// NormalizeCritique coerces a model-produced value into a canonical
// Critique. Accepted shapes: *Critique, Critique, map[string]any. A missing
// or non-numeric score is a schema violation; out-of-range scores are
// clamped into [ScoreMin, ScoreMax].
func NormalizeCritique(v any) (*Critique, error) {
	switch src := v.(type) {
	case *Critique:
		if src == nil {
			return nil, newSchemaError("critique", "score", "nil critique")
		}
		return normalizeTypedCritique(src)
	case Critique:
		return normalizeTypedCritique(&src)
	case map[string]any:
		return critiqueFromMap(src)
	default:
		return nil, newSchemaError("critique", "", fmt.Sprintf("unsupported shape %T", v))
	}
}

func normalizeTypedPlan(src *Plan) (*Plan, error) {
	if len(src.Topics) == 0 {
		return nil, newSchemaError("plan", "topics", "required, must contain at least one topic")
	}
	out := &Plan{
		Topics:              make([]Topic, len(src.Topics)),
		GenerationIteration: src.GenerationIteration,
	}
	for i, t := range src.Topics {
		nt := t
		if nt.Subtopics == nil {
			nt.Subtopics = []Subtopic{}
		} else {
			nt.Subtopics = append([]Subtopic(nil), nt.Subtopics...)
		}
		out.Topics[i] = nt
	}
	AssignTopicIDs(out.Topics)
	return out, nil
}

func normalizeTypedCritique(src *Critique) (*Critique, error) {
	out := &Critique{
		Assessment:      src.Assessment,
		Score:           clampScore(src.Score),
		Strengths:       copyList(src.Strengths),
		Weaknesses:      copyList(src.Weaknesses),
		Suggestions:     copyList(src.Suggestions),
		Recommendations: copyList(src.Recommendations),
	}
	return out, nil
}

func planFromMap(m map[string]any) (*Plan, error) {
	rawTopics, ok := m["topics"]
	if !ok {
		return nil, newSchemaError("plan", "topics", "required field missing")
	}
	list, ok := rawTopics.([]any)
	if !ok {
		return nil, newSchemaError("plan", "topics", fmt.Sprintf("expected list, got %T", rawTopics))
	}
	if len(list) == 0 {
		return nil, newSchemaError("plan", "topics", "must contain at least one topic")
	}

	out := &Plan{
		Topics:              make([]Topic, 0, len(list)),
		GenerationIteration: intField(m, "generation_iteration"),
	}
	for i, raw := range list {
		topic, err := topicFromValue(raw)
		if err != nil {
			return nil, newSchemaError("plan", fmt.Sprintf("topics[%d]", i), err.Error())
		}
		out.Topics = append(out.Topics, topic)
	}
	AssignTopicIDs(out.Topics)
	return out, nil
}

// topicFromValue accepts a topic as a mapping or, for maximally sloppy
// model output, a bare string title.
func topicFromValue(v any) (Topic, error) {
	switch tv := v.(type) {
	case string:
		return Topic{Title: tv, Subtopics: []Subtopic{}}, nil
	case map[string]any:
		title := textField(tv, "title", "topic", "name")
		if title == "" {
			return Topic{}, fmt.Errorf("missing title")
		}
		topic := Topic{
			ID:          textField(tv, "id"),
			Title:       title,
			Description: textField(tv, "description", "reason"),
			Subtopics:   []Subtopic{},
		}
		if rawSubs, ok := tv["subtopics"]; ok {
			subs, ok := rawSubs.([]any)
			if !ok {
				return Topic{}, fmt.Errorf("subtopics: expected list, got %T", rawSubs)
			}
			for _, rawSub := range subs {
				sub, err := subtopicFromValue(rawSub)
				if err != nil {
					return Topic{}, fmt.Errorf("subtopics: %w", err)
				}
				topic.Subtopics = append(topic.Subtopics, sub)
			}
		}
		return topic, nil
	default:
		return Topic{}, fmt.Errorf("expected mapping or string, got %T", v)
	}
}

// subtopicFromValue accepts a subtopic as a mapping or a bare string title.
func subtopicFromValue(v any) (Subtopic, error) {
	switch sv := v.(type) {
	case string:
		return Subtopic{Title: sv}, nil
	case map[string]any:
		title := textField(sv, "title", "topic", "name")
		if title == "" {
			return Subtopic{}, fmt.Errorf("missing subtopic title")
		}
		return Subtopic{
			Title:       title,
			Description: textField(sv, "description", "reason"),
		}, nil
	default:
		return Subtopic{}, fmt.Errorf("expected mapping or string, got %T", v)
	}
}

func critiqueFromMap(m map[string]any) (*Critique, error) {
	raw, ok := firstPresent(m, "score")
	if !ok {
		return nil, newSchemaError("critique", "score", "required field missing")
	}
	score, ok := numericValue(raw)
	if !ok {
		return nil, newSchemaError("critique", "score", fmt.Sprintf("expected number, got %T", raw))
	}

	return &Critique{
		Assessment:      textField(m, "assessment"),
		Score:           clampScore(score),
		Strengths:       listField(m, "strength_list", "strengths"),
		Weaknesses:      listField(m, "weakness_list", "weaknesses"),
		Suggestions:     listField(m, "suggestion_list", "suggestions"),
		Recommendations: listField(m, "recommendation_list", "recommendations"),
	}, nil
}

func clampScore(s float64) float64 {
	if s < ScoreMin {
		return ScoreMin
	}
	if s > ScoreMax {
		return ScoreMax
	}
	return s
}

func copyList(src []string) []string {
	if len(src) == 0 {
		return []string{}
	}
	return append([]string(nil), src...)
}

func firstPresent(m map[string]any, keys ...string) (any, bool) {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			return v, true
		}
	}
	return nil, false
}

// textField returns the first present string-valued key, or empty string.
func textField(m map[string]any, keys ...string) string {
	v, ok := firstPresent(m, keys...)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// intField returns the key's value as an int, or 0 when absent or
// non-numeric.
func intField(m map[string]any, key string) int {
	v, ok := m[key]
	if !ok {
		return 0
	}
	f, ok := numericValue(v)
	if !ok {
		return 0
	}
	return int(f)
}

// listField returns the first present key coerced to a string list.
// Non-string elements are stringified; absent or mistyped fields default
// to an empty slice, never nil.
func listField(m map[string]any, keys ...string) []string {
	v, ok := firstPresent(m, keys...)
	if !ok {
		return []string{}
	}
	raw, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		} else {
			out = append(out, fmt.Sprintf("%v", item))
		}
	}
	return out
}

// numericValue accepts the numeric shapes a JSON decode can produce.
func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
