package insight

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ExtractedConfidence is a confidence assessment mined from a transcript
type ExtractedConfidence struct {
	Score      int // normalized to 0-100
	Assessment string
	Reasoning  string
	Risks      []string
}

var confidenceBlockRe = regexp.MustCompile(`(?s)===CONFIDENCE===\s*(.*?)\s*===END===`)

// ExtractConfidence mines the single confidence block of a transcript.
// Returns nil when the agent emitted none or the block is malformed.
// If several blocks appear, the last parseable one wins.
func ExtractConfidence(transcript string) *ExtractedConfidence {
	text := normalizeNewlines(transcript)

	var result *ExtractedConfidence
	for _, match := range confidenceBlockRe.FindAllStringSubmatch(text, -1) {
		fields := parseConfidenceFields(match[1])

		score, ok := parseScore(fields["SCORE"])
		if !ok {
			continue
		}

		result = &ExtractedConfidence{
			Score:      score,
			Assessment: fields["ASSESSMENT"],
			Reasoning:  fields["REASONING"],
			Risks:      splitAlternatives(fields["RISKS"]),
		}
	}
	return result
}

func parseConfidenceFields(body string) map[string]string {
	fields := map[string]string{}
	current := ""

	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		matched := false
		for _, key := range []string{"SCORE", "ASSESSMENT", "REASONING", "RISKS"} {
			prefix := key + ":"
			if strings.HasPrefix(trimmed, prefix) {
				fields[key] = strings.TrimSpace(strings.TrimPrefix(trimmed, prefix))
				current = key
				matched = true
				break
			}
		}
		if !matched && current != "" && trimmed != "" {
			fields[current] = strings.TrimSpace(fields[current] + " " + trimmed)
		}
	}
	return fields
}

// parseScore accepts an integer 0-100 or a fraction 0.0-1.0, normalizing
// the latter to the 0-100 scale
func parseScore(raw string) (int, bool) {
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "%")
	if raw == "" {
		return 0, false
	}

	if strings.Contains(raw, ".") {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || f < 0 {
			return 0, false
		}
		if f <= 1.0 {
			return int(math.Round(f * 100)), true
		}
		if f <= 100 {
			return int(math.Round(f)), true
		}
		return 0, false
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > 100 {
		return 0, false
	}
	return n, true
}
