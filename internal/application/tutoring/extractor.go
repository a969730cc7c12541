package tutoring

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	apperrors "github.com/chatling/v2/pkg/errors"

	"github.com/chatling/v2/internal/domain/tutoring"
)

// Models wrap their JSON in prose, fences, or nothing at all, so extraction
// walks a fixed ladder: parse the whole response, then the first fenced code
// block, then the first balanced {...} or [...] span. Each rung is tried at
// most once and the first hit wins. Extraction is pure; identical input
// always yields the identical result.

var fencedBlockRe = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

// ExtractJSON pulls the first JSON value out of a raw model response.
// It returns an unparseable-output error when every rung misses.
func ExtractJSON(raw string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, apperrors.NewUnparseableOutputError(raw)
	}

	if json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed), nil
	}

	if m := fencedBlockRe.FindStringSubmatch(trimmed); m != nil {
		candidate := strings.TrimSpace(m[1])
		if json.Valid([]byte(candidate)) {
			return json.RawMessage(candidate), nil
		}
	}

	if span := balancedSpan(trimmed); span != "" && json.Valid([]byte(span)) {
		return json.RawMessage(span), nil
	}

	return nil, apperrors.NewUnparseableOutputError(raw)
}

// balancedSpan returns the first balanced top-level {...} or [...] substring,
// tracking string literals so braces inside quoted values don't miscount.
func balancedSpan(s string) string {
	start := -1
	var open, close rune
	for i, r := range s {
		if r == '{' || r == '[' {
			start = i
			open = r
			if r == '{' {
				close = '}'
			} else {
				close = ']'
			}
			break
		}
	}
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i, r := range s[start:] {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : start+i+1]
			}
		}
	}
	return ""
}

// ExtractObject extracts a JSON object and verifies every required key is
// present. A missing key is a schema mismatch, not an unparseable response.
func ExtractObject(raw string, required ...string) (json.RawMessage, error) {
	extracted, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(extracted, &fields); err != nil {
		return nil, apperrors.NewSchemaMismatchError("expected a JSON object")
	}
	var missing []string
	for _, key := range required {
		if _, ok := fields[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewSchemaMismatchError(
			fmt.Sprintf("missing required keys: %s", strings.Join(missing, ", ")))
	}
	return extracted, nil
}

// ExtractArray extracts a JSON array from a raw model response
func ExtractArray(raw string) (json.RawMessage, error) {
	extracted, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}
	var items []json.RawMessage
	if err := json.Unmarshal(extracted, &items); err != nil {
		return nil, apperrors.NewSchemaMismatchError("expected a JSON array")
	}
	return extracted, nil
}

// ExtractCorrection decodes a grammar-correction response and enforces the
// empty-list invariant: no corrections means the sentence must be unchanged.
func ExtractCorrection(raw string) (*tutoring.Correction, error) {
	extracted, err := ExtractObject(raw, "original_sentence", "corrected_sentence", "corrections")
	if err != nil {
		return nil, err
	}
	var c tutoring.Correction
	if err := json.Unmarshal(extracted, &c); err != nil {
		return nil, apperrors.NewSchemaMismatchError("correction fields have wrong types")
	}
	if !c.Consistent() {
		return nil, apperrors.NewSchemaMismatchError(
			"empty corrections list but corrected_sentence differs from original_sentence")
	}
	return &c, nil
}

// ExtractOptimization decodes a rewrite response
func ExtractOptimization(raw string) (*tutoring.Optimization, error) {
	extracted, err := ExtractObject(raw, "original_sentence", "optimized_sentence", "optimization_type")
	if err != nil {
		return nil, err
	}
	var o tutoring.Optimization
	if err := json.Unmarshal(extracted, &o); err != nil {
		return nil, apperrors.NewSchemaMismatchError("optimization fields have wrong types")
	}
	return &o, nil
}
