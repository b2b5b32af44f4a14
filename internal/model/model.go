// Package model defines the core data types shared across dm.
package model

// Severity classifies a finding or review comment.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// ParseSeverity maps a service-side severity string to a Severity.
// Unknown strings map to SeverityInfo.
func ParseSeverity(s string) Severity {
	switch s {
	case "error", "critical", "high":
		return SeverityError
	case "warning", "medium":
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// CommandContext is the bundle of local repository/editor state sent to the
// inference service for one invocation. Built fresh per invocation and never
// persisted.
type CommandContext struct {
	Code          string
	DiffText      string
	FilePaths     []string
	FilePath      string
	RepositoryID  string
	Language      string
	PRTitle       string
	PRDescription string
	Categories    []string
}

// Suggestion is one alternative fix attached to a debug item.
type Suggestion struct {
	Description string `json:"description"`
	Code        string `json:"code"`
}

// DebugItem is a single issue found by the debug operation.
type DebugItem struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Severity    string       `json:"severity"`
	Code        string       `json:"code,omitempty"`
	Solution    string       `json:"solution,omitempty"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
}

// DebugResult is the structured outcome of a debug invocation. Language is
// filled in by the pipeline from the analyzed document so surfaces can
// highlight code blocks.
type DebugResult struct {
	Items       []DebugItem `json:"items"`
	ContextUsed bool        `json:"context_used"`
	Language    string      `json:"language,omitempty"`
}

// Item returns the item with the given id, or nil.
func (r *DebugResult) Item(id string) *DebugItem {
	for i := range r.Items {
		if r.Items[i].ID == id {
			return &r.Items[i]
		}
	}
	return nil
}

// ReviewFix is a suggested replacement attached to a review comment. The
// anchor is the original text the fix replaces.
type ReviewFix struct {
	Anchor string `json:"anchor"`
	Code   string `json:"code"`
}

// ReviewComment is one file-scoped comment from the review operation.
type ReviewComment struct {
	ID       string     `json:"id"`
	File     string     `json:"file"`
	Line     int        `json:"line"`
	Message  string     `json:"message"`
	Severity string     `json:"severity"`
	Fix      *ReviewFix `json:"fix,omitempty"`
}

// ReviewSummary aggregates comment counts by severity.
type ReviewSummary struct {
	Total    int `json:"total"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Infos    int `json:"infos"`
}

// ReviewSuggestions holds the free-form suggestion sections of a review.
type ReviewSuggestions struct {
	General     []string `json:"general,omitempty"`
	Performance []string `json:"performance,omitempty"`
	Security    []string `json:"security,omitempty"`
}

// ReviewResult is the structured outcome of a review invocation.
type ReviewResult struct {
	Summary     ReviewSummary     `json:"summary"`
	Comments    []ReviewComment   `json:"comments"`
	Suggestions ReviewSuggestions `json:"suggestions"`
	ContextUsed bool              `json:"context_used"`
}

// Comment returns the comment with the given id, or nil.
func (r *ReviewResult) Comment(id string) *ReviewComment {
	for i := range r.Comments {
		if r.Comments[i].ID == id {
			return &r.Comments[i]
		}
	}
	return nil
}

// Files returns the distinct file paths referenced by comments, in first-seen
// order.
func (r *ReviewResult) Files() []string {
	seen := make(map[string]bool)
	var files []string
	for _, c := range r.Comments {
		if c.File == "" || seen[c.File] {
			continue
		}
		seen[c.File] = true
		files = append(files, c.File)
	}
	return files
}

// CommitResult is the outcome of a commit-message invocation.
type CommitResult struct {
	Message     string `json:"message"`
	ContextUsed bool   `json:"context_used"`
}

// FixEdit describes one textual edit to apply to a document. Exactly one of
// AnchorText or Line is set: anchor mode locates the original text by exact
// substring search, line mode replaces the full 1-based line.
type FixEdit struct {
	File            string
	AnchorText      string
	Line            int
	ReplacementText string
}
