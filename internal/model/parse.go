package model

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// The inference agents return their analysis as a text payload that is
// usually a JSON document but can degrade to prose when the model ignores
// the output format. Parsing is therefore best-effort: a payload that does
// not decode falls back to a single untitled item carrying the raw text, so
// a sloppy model response still renders instead of failing the pipeline.

// ParseDebugPayload decodes the debug operation's analysis payload.
func ParseDebugPayload(analysis string, contextUsed bool) *DebugResult {
	var r DebugResult
	if err := json.Unmarshal([]byte(extractJSON(analysis)), &r); err != nil || len(r.Items) == 0 {
		r = DebugResult{Items: []DebugItem{{
			Title:       "Analysis",
			Description: strings.TrimSpace(analysis),
			Severity:    "info",
		}}}
	}
	r.ContextUsed = contextUsed
	for i := range r.Items {
		if r.Items[i].ID == "" {
			r.Items[i].ID = uuid.NewString()
		}
	}
	return &r
}

// ParseReviewPayload decodes the review operation's payload and recomputes
// the summary counts from the comments, which the service does not always
// populate consistently.
func ParseReviewPayload(review string, contextUsed bool) *ReviewResult {
	var r ReviewResult
	if err := json.Unmarshal([]byte(extractJSON(review)), &r); err != nil {
		r = ReviewResult{
			Suggestions: ReviewSuggestions{General: []string{strings.TrimSpace(review)}},
		}
	}
	r.ContextUsed = contextUsed

	summary := ReviewSummary{Total: len(r.Comments)}
	for i := range r.Comments {
		if r.Comments[i].ID == "" {
			r.Comments[i].ID = uuid.NewString()
		}
		switch ParseSeverity(r.Comments[i].Severity) {
		case SeverityError:
			summary.Errors++
		case SeverityWarning:
			summary.Warnings++
		default:
			summary.Infos++
		}
	}
	r.Summary = summary
	return &r
}

// extractJSON strips a markdown code fence around a JSON document, if any,
// and otherwise trims to the outermost braces.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		return strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
