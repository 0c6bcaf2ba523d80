package synthesis

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/upb/recipe-api/models"
)

const (
	contextHeader  = "Context:\n"
	responseMarker = "Response:"

	noPreferences = "none"
)

var specialTokenPattern = regexp.MustCompile(`<\|[^|<>]*\|>|</?s>|<pad>|<unk>`)

// BuildContext renders retrieved records as "{title}: {directions}" lines
// joined by a single space, in rank order.
func BuildContext(records []models.Recipe) string {
	parts := make([]string, 0, len(records))
	for _, r := range records {
		parts = append(parts, r.ContextLine())
	}
	return strings.Join(parts, " ")
}

// FormatPreferences joins preferences with ", " exactly as sent, skipping
// entries that are entirely blank, or returns "none"
func FormatPreferences(preferences []string) string {
	kept := make([]string, 0, len(preferences))
	for _, p := range preferences {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return noPreferences
	}
	return strings.Join(kept, ", ")
}

func ingredientsDirective(ingredients string) string {
	return fmt.Sprintf("Please ensure the recipe includes the following ingredients: %s.", ingredients)
}

// BuildPrompt assembles the model input:
//
//	Context:
//	{context}
//
//	Please ensure the recipe includes the following ingredients: {ingredients}.
//	Preferences: {preferences}.
//
//	Response:
//
// When the prompt exceeds maxTokens the context is shortened first, then the
// preferences, both from their tail. The ingredients and the response marker
// are never cut, so only an ingredients string that alone overflows the
// budget can push the prompt past maxTokens.
func BuildPrompt(tok Tokenizer, context, ingredients string, preferences []string, maxTokens int) string {
	prefs := FormatPreferences(preferences)

	if maxTokens > 0 {
		fixed := tok.Count(contextHeader) +
			tok.Count(ingredientsDirective(ingredients)) +
			tok.Count("Preferences: .") +
			tok.Count(responseMarker)
		budget := maxTokens - fixed

		if n := tok.Count(prefs); n > budget {
			context = ""
			prefs = strings.TrimRight(tok.Truncate(prefs, budget), ", \t\n")
			if prefs == "" && budget < 0 {
				// the ingredients alone overflow
				prefs = noPreferences
			}
		} else if remaining := budget - n; tok.Count(context) > remaining {
			context = strings.TrimRightFunc(tok.Truncate(context, remaining), unicode.IsSpace)
		}
	}

	return contextHeader + context + "\n\n" +
		ingredientsDirective(ingredients) + "\n" +
		"Preferences: " + prefs + ".\n\n" +
		responseMarker
}

// CleanOutput strips special tokens and control characters from generated
// text and trims surrounding whitespace.
func CleanOutput(text string) string {
	text = specialTokenPattern.ReplaceAllString(text, "")
	text = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)
	return strings.TrimSpace(text)
}
