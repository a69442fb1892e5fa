package insight

import (
	"regexp"
	"strings"

	"github.com/YoshitsuguKoike/deerun/internal/domain/model"
	"github.com/YoshitsuguKoike/deerun/internal/domain/model/job"
)

// ExtractedDecision is a decision mined from a transcript, before it is
// bound to a job and persisted
type ExtractedDecision struct {
	Action       string
	Reasoning    string
	Alternatives []string
	Category     model.DecisionCategory
}

// ExtractDecisions mines design decisions from a reconstructed transcript.
//
// Strictly delimited blocks are canonical. A legacy inline format is tried
// when no strict block parses. The natural-language pass runs only when
// neither structured format yields anything at all.
func ExtractDecisions(transcript string) []ExtractedDecision {
	text := normalizeNewlines(transcript)

	decisions := extractStrictBlocks(text)
	if len(decisions) == 0 {
		decisions = extractLegacyBlocks(text)
	}
	if len(decisions) == 0 {
		decisions = extractNaturalLanguage(text)
	}
	return decisions
}

// normalizeNewlines turns escaped newline sequences back into real ones.
// Transcripts assembled from JSON fragments frequently carry them.
func normalizeNewlines(text string) string {
	return strings.ReplaceAll(text, `\n`, "\n")
}

var (
	strictBlockRe = regexp.MustCompile(`(?s)===DECISION===\s*(.*?)\s*===END===`)

	// Legacy single-line form: DECISION: <action> | REASONING: <reason> [| ALTERNATIVES: a; b]
	legacyBlockRe = regexp.MustCompile(`(?m)^\s*DECISION:\s*(.+?)\s*\|\s*REASONING:\s*(.+?)(?:\s*\|\s*ALTERNATIVES:\s*(.+?))?\s*$`)
)

func extractStrictBlocks(text string) []ExtractedDecision {
	var decisions []ExtractedDecision

	for _, match := range strictBlockRe.FindAllStringSubmatch(text, -1) {
		fields := parseBlockFields(match[1])
		action := fields["ACTION"]
		if action == "" {
			continue
		}

		category := model.DecisionCategory(strings.ToLower(fields["CATEGORY"]))
		if !category.IsValid() {
			category = classifyCategory(action + " " + fields["REASONING"])
		}

		decisions = append(decisions, ExtractedDecision{
			Action:       action,
			Reasoning:    fields["REASONING"],
			Alternatives: splitAlternatives(fields["ALTERNATIVES"]),
			Category:     category,
		})
	}
	return decisions
}

func extractLegacyBlocks(text string) []ExtractedDecision {
	var decisions []ExtractedDecision

	for _, match := range legacyBlockRe.FindAllStringSubmatch(text, -1) {
		action := strings.TrimSpace(match[1])
		reasoning := strings.TrimSpace(match[2])
		if action == "" || reasoning == "" {
			continue
		}
		decisions = append(decisions, ExtractedDecision{
			Action:       action,
			Reasoning:    reasoning,
			Alternatives: splitAlternatives(match[3]),
			Category:     classifyCategory(action + " " + reasoning),
		})
	}
	return decisions
}

// parseBlockFields parses "KEY: value" lines of a strict block body.
// A value continues across lines until the next known key.
func parseBlockFields(body string) map[string]string {
	fields := map[string]string{}
	current := ""

	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		matched := false
		for _, key := range []string{"ACTION", "REASONING", "ALTERNATIVES", "CATEGORY"} {
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

func splitAlternatives(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var alts []string
	for _, alt := range strings.Split(raw, ";") {
		if a := strings.TrimSpace(alt); a != "" {
			alts = append(alts, a)
		}
	}
	return alts
}

// decisionTemplate is one phrase pattern expressing "chose X because Y".
// Patterns are tried in order; the first match wins for a sentence.
type decisionTemplate struct {
	pattern     *regexp.Regexp
	actionGroup int
	reasonGroup int
}

var decisionTemplates = []decisionTemplate{
	{regexp.MustCompile(`(?i)\b(?:i|we)(?:'ve| have)? decided to\s+(.+?)\s+(?:because|since|as|so that)\s+(.+)`), 1, 2},
	{regexp.MustCompile(`(?i)\b(?:i|we) chose\s+(.+?)\s+(?:because|since|as|over .+? because)\s+(.+)`), 1, 2},
	{regexp.MustCompile(`(?i)\b(?:i|we)(?:'m| am|'re| are)? going with\s+(.+?)\s+(?:because|since|as)\s+(.+)`), 1, 2},
	{regexp.MustCompile(`(?i)\b(?:i|we) went with\s+(.+?)\s+(?:because|since|as)\s+(.+)`), 1, 2},
	{regexp.MustCompile(`(?i)\b(?:i|we) opted (?:for|to use)\s+(.+?)\s+(?:because|since|as|to)\s+(.+)`), 1, 2},
	{regexp.MustCompile(`(?i)\b(?:i|we) picked\s+(.+?)\s+(?:because|since|as)\s+(.+)`), 1, 2},
	{regexp.MustCompile(`(?i)\b(?:i|we) selected\s+(.+?)\s+(?:because|since|as)\s+(.+)`), 1, 2},
	{regexp.MustCompile(`(?i)\b(?:i|we)(?:'ll| will) use\s+(.+?)\s+(?:because|since|as|to)\s+(.+)`), 1, 2},
	{regexp.MustCompile(`(?i)\busing\s+(.+?)\s+(?:because|since)\s+(.+)`), 1, 2},
	{regexp.MustCompile(`(?i)\bdecided on\s+(.+?)\s+(?:because|since|as)\s+(.+)`), 1, 2},
	{regexp.MustCompile(`(?i)\bsettled on\s+(.+?)\s+(?:because|since|as)\s+(.+)`), 1, 2},
	{regexp.MustCompile(`(?i)\bswitched to\s+(.+?)\s+(?:because|since|as|to)\s+(.+)`), 1, 2},
	{regexp.MustCompile(`(?i)\b(?:i|we) implemented\s+(.+?)\s+(?:because|since|to)\s+(.+)`), 1, 2},
}

// hedgeRe rejects hedging language that reads like a decision but is not one
var hedgeRe = regexp.MustCompile(`(?i)\b(?:might consider|could potentially|may want to|we could|one option|perhaps|possibly|maybe|would suggest|it may be worth)\b`)

var sentenceSplitRe = regexp.MustCompile(`[.!?]\s+|\n+`)

const (
	minActionLen = 3
	maxActionLen = 300
	minReasonLen = 5
	maxReasonLen = 500
)

// extractNaturalLanguage mines firm "chose X because Y" sentences.
// Fallback only: it runs when the transcript carries no structured blocks.
func extractNaturalLanguage(text string) []ExtractedDecision {
	var decisions []ExtractedDecision
	seen := map[string]bool{}

	for _, sentence := range sentenceSplitRe.Split(text, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" || hedgeRe.MatchString(sentence) {
			continue
		}

		for _, tmpl := range decisionTemplates {
			match := tmpl.pattern.FindStringSubmatch(sentence)
			if match == nil {
				continue
			}

			action := trimSentencePunctuation(match[tmpl.actionGroup])
			reasoning := trimSentencePunctuation(match[tmpl.reasonGroup])
			if len(action) < minActionLen || len(action) > maxActionLen {
				break
			}
			if len(reasoning) < minReasonLen || len(reasoning) > maxReasonLen {
				break
			}

			key := dedupKey(action)
			if seen[key] {
				break
			}
			seen[key] = true

			decisions = append(decisions, ExtractedDecision{
				Action:    action,
				Reasoning: reasoning,
				Category:  classifyCategory(action + " " + reasoning),
			})
			// One decision per sentence at most
			break
		}
	}
	return decisions
}

func trimSentencePunctuation(s string) string {
	return strings.Trim(strings.TrimSpace(s), ".,;: ")
}

// dedupKey normalizes an action for duplicate detection
func dedupKey(action string) string {
	return strings.Join(strings.Fields(strings.ToLower(action)), " ")
}

// categoryKeywords maps keyword sets to categories, tried in order
var categoryKeywords = []struct {
	category model.DecisionCategory
	words    []string
}{
	{model.CategoryUI, []string{"ui", "layout", "view", "screen", "button", "menu", "widget", "frontend", "css", "styling"}},
	{model.CategoryArchitecture, []string{"architecture", "layer", "module boundary", "microservice", "monolith", "component structure", "separation of concerns", "coupling"}},
	{model.CategoryLibrary, []string{"library", "package", "dependency", "framework", "sdk", "crate", "gem", "npm"}},
	{model.CategoryPattern, []string{"pattern", "singleton", "factory", "observer", "strategy", "adapter", "decorator", "repository pattern"}},
	{model.CategoryStorage, []string{"storage", "cache", "database", "persistence", "sqlite", "postgres", "redis", "schema", "table", "index", "refetch"}},
	{model.CategoryAPI, []string{"api", "endpoint", "request", "response", "route", "http", "rest", "grpc", "webhook"}},
	{model.CategoryTesting, []string{"test", "mock", "stub", "fixture", "coverage", "assertion"}},
}

// classifyCategory assigns a category by keyword heuristics
func classifyCategory(text string) model.DecisionCategory {
	lowered := strings.ToLower(text)
	for _, entry := range categoryKeywords {
		for _, word := range entry.words {
			if strings.Contains(lowered, word) {
				return entry.category
			}
		}
	}
	return model.CategoryOther
}

// BindDecisions converts extracted decisions into persistable records owned
// by the given job
func BindDecisions(jobID model.JobID, extracted []ExtractedDecision) []*job.Decision {
	var decisions []*job.Decision
	for _, e := range extracted {
		d, err := job.NewDecision(jobID, e.Action, e.Reasoning, e.Alternatives, e.Category)
		if err != nil {
			continue
		}
		decisions = append(decisions, d)
	}
	return decisions
}
