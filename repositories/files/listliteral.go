package files

import (
	"fmt"
	"strings"
)

// parseIngredients decodes an ingredients cell. Cells are list literals as
// written by pandas, e.g. ['flour', "baker's yeast"], or JSON arrays. Cells
// that are not bracketed are split on commas.
func parseIngredients(cell string) ([]string, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return []string{}, nil
	}
	if !strings.HasPrefix(cell, "[") {
		return splitPlain(cell), nil
	}
	return parseListLiteral(cell)
}

func splitPlain(cell string) []string {
	parts := strings.Split(cell, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseListLiteral parses a bracketed list of quoted strings
func parseListLiteral(s string) ([]string, error) {
	if !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("unterminated list literal")
	}
	body := []rune(s[1 : len(s)-1])
	out := []string{}

	i := 0
	skipSpace := func() {
		for i < len(body) && (body[i] == ' ' || body[i] == '\t' || body[i] == '\n' || body[i] == '\r') {
			i++
		}
	}

	for {
		skipSpace()
		if i >= len(body) {
			return out, nil
		}

		quote := body[i]
		if quote != '\'' && quote != '"' {
			return nil, fmt.Errorf("expected quoted string at offset %d", i+1)
		}
		i++

		var b strings.Builder
		closed := false
		for i < len(body) {
			r := body[i]
			i++
			if r == quote {
				closed = true
				break
			}
			if r == '\\' && i < len(body) {
				esc := body[i]
				i++
				switch esc {
				case 'n':
					b.WriteRune('\n')
				case 't':
					b.WriteRune('\t')
				case 'r':
					b.WriteRune('\r')
				default:
					b.WriteRune(esc)
				}
				continue
			}
			b.WriteRune(r)
		}
		if !closed {
			return nil, fmt.Errorf("unterminated string in list literal")
		}
		out = append(out, b.String())

		skipSpace()
		if i >= len(body) {
			return out, nil
		}
		if body[i] != ',' {
			return nil, fmt.Errorf("expected ',' at offset %d", i+1)
		}
		i++
	}
}
