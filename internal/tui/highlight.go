package tui

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
)

// highlightCode renders a code snippet with chroma syntax highlighting,
// one styled string per line. An unknown language falls back to plain text.
func highlightCode(code, language string) []string {
	code = strings.TrimRight(code, "\n")
	lines := strings.Split(code, "\n")

	lexer := lexerForLanguage(language)
	if lexer == nil {
		return lines
	}
	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return lines
	}

	style := styles.Get("dracula")
	if style == nil {
		style = styles.Fallback
	}

	var out []string
	var current strings.Builder
	for _, token := range iterator.Tokens() {
		parts := strings.Split(token.Value, "\n")
		for i, part := range parts {
			if i > 0 {
				out = append(out, current.String())
				current.Reset()
			}
			if part == "" {
				continue
			}
			if color := tokenColor(style, token.Type); color != "" {
				current.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(part))
			} else {
				current.WriteString(part)
			}
		}
	}
	out = append(out, current.String())

	for len(out) < len(lines) {
		out = append(out, "")
	}
	return out
}

func lexerForLanguage(language string) chroma.Lexer {
	if language == "" {
		return nil
	}
	lexer := lexers.Get(language)
	if lexer != nil {
		lexer = chroma.Coalesce(lexer)
	}
	return lexer
}

func tokenColor(style *chroma.Style, tt chroma.TokenType) string {
	entry := style.Get(tt)
	if entry.Colour.IsSet() {
		return entry.Colour.String()
	}
	return ""
}
