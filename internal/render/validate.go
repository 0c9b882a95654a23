package render

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptySource    = errors.New("diagram source is empty")
	ErrUnknownDiagram = errors.New("unknown diagram type")
	ErrUnbalanced     = errors.New("unbalanced brackets")
)

var diagramKeywords = []string{
	"graph", "flowchart", "sequenceDiagram", "classDiagram", "stateDiagram",
	"stateDiagram-v2", "erDiagram", "journey", "gantt", "pie", "mindmap",
	"timeline", "quadrantChart", "gitGraph", "C4Context", "C4Container",
	"C4Component", "block-beta", "architecture-beta",
}

// Validate checks that source looks like a Mermaid diagram.
func Validate(source string) error {
	header := headerLine(source)
	if header == "" {
		return ErrEmptySource
	}
	keyword := strings.Fields(header)[0]
	if !knownKeyword(keyword) {
		return fmt.Errorf("%w: %q", ErrUnknownDiagram, keyword)
	}
	return checkBrackets(source)
}

// headerLine returns the first line that is neither blank, a %% comment, nor
// part of a --- front-matter block.
func headerLine(source string) string {
	inFrontMatter := false
	for i, line := range strings.Split(source, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "---" && (i == 0 || inFrontMatter):
			inFrontMatter = !inFrontMatter
		case inFrontMatter, line == "", strings.HasPrefix(line, "%%"):
		default:
			return line
		}
	}
	return ""
}

func knownKeyword(keyword string) bool {
	keyword = strings.TrimSuffix(keyword, ";")
	for _, k := range diagramKeywords {
		if strings.EqualFold(k, keyword) {
			return true
		}
	}
	return false
}

func checkBrackets(source string) error {
	pairs := map[rune]rune{')': '(', ']': '[', '}': '{'}
	var stack []rune
	for lineNo, line := range strings.Split(source, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "%%") {
			continue
		}
		inQuote := false
		for _, r := range line {
			switch {
			case r == '"':
				inQuote = !inQuote
			case inQuote:
			case r == '(' || r == '[' || r == '{':
				stack = append(stack, r)
			case pairs[r] != 0:
				if len(stack) == 0 || stack[len(stack)-1] != pairs[r] {
					return fmt.Errorf("%w: unexpected %q on line %d", ErrUnbalanced, r, lineNo+1)
				}
				stack = stack[:len(stack)-1]
			}
		}
		if inQuote {
			return fmt.Errorf("%w: unterminated quote on line %d", ErrUnbalanced, lineNo+1)
		}
	}
	if len(stack) > 0 {
		return fmt.Errorf("%w: %d unclosed", ErrUnbalanced, len(stack))
	}
	return nil
}
