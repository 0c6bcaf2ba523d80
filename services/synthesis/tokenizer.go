package synthesis

import "regexp"

// Tokenizer counts and truncates text in model tokens
type Tokenizer interface {
	// Count returns the number of tokens in text
	Count(text string) int

	// Truncate returns the longest prefix of text holding at most maxTokens
	// tokens. The prefix ends on a token boundary.
	Truncate(text string, maxTokens int) string
}

// wordPattern splits text into runs of word characters and single
// punctuation marks, the usual pre-tokenization of BPE vocabularies.
var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+|[^\p{L}\p{N}_\s]`)

// WordTokenizer is a deterministic approximation of the model tokenizer.
// It never undercounts a GPT-2 style BPE by more than the sub-word splits.
type WordTokenizer struct{}

// NewWordTokenizer creates a word/punctuation tokenizer
func NewWordTokenizer() *WordTokenizer {
	return &WordTokenizer{}
}

// Count returns the number of tokens in text
func (WordTokenizer) Count(text string) int {
	return len(wordPattern.FindAllStringIndex(text, -1))
}

// Truncate keeps the first maxTokens tokens of text
func (WordTokenizer) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	locs := wordPattern.FindAllStringIndex(text, maxTokens+1)
	if len(locs) <= maxTokens {
		return text
	}
	return text[:locs[maxTokens-1][1]]
}
