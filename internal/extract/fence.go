// Package extract pulls structured artifacts out of free-form model output.
//
// Only fenced blocks are trusted: text outside a ```label fence is never
// parsed, so a response without a fence is always a failure.
package extract

import "strings"

const fence = "```"

// documentLabels mark blocks that hold a whole Markdown document and may
// contain unlabelled code fences.
var documentLabels = []string{"markdown", "md"}

// Blocks returns the contents of every fenced block whose label matches one of
// labels (case-insensitive), in the order they appear. Fences nested inside a
// block (for example code samples in a Markdown document) are kept as content.
// Unterminated blocks are ignored.
func Blocks(text string, labels ...string) []string {
	var out []string
	pos := 0
	for pos < len(text) {
		i := strings.Index(text[pos:], fence)
		if i < 0 {
			break
		}
		start := pos + i
		label, contentStart, ok := opener(text, start)
		if !ok {
			pos = start + len(fence)
			continue
		}
		var (
			content string
			end     int
		)
		if matchLabel(label, documentLabels) {
			content, end, ok = closeDocument(text, contentStart)
		} else {
			content, end, ok = closeBlock(text, contentStart)
		}
		if !ok {
			break
		}
		if matchLabel(label, labels) {
			out = append(out, content)
		}
		pos = end
	}
	return out
}

// opener reports whether the fence at i opens a labelled block: the fence is
// followed by a label, optional blanks and a line break.
func opener(text string, i int) (label string, contentStart int, ok bool) {
	j := i + len(fence)
	k := j
	for k < len(text) && isLabelChar(text[k]) {
		k++
	}
	if k == j {
		return "", 0, false
	}
	label = text[j:k]
	for k < len(text) && (text[k] == ' ' || text[k] == '\t' || text[k] == '\r') {
		k++
	}
	if k >= len(text) || text[k] != '\n' {
		return "", 0, false
	}
	return label, k + 1, true
}

// closeBlock finds the fence closing a block whose content starts at from.
func closeBlock(text string, from int) (content string, end int, ok bool) {
	depth := 0
	pos := from
	for pos < len(text) {
		i := strings.Index(text[pos:], fence)
		if i < 0 {
			return "", 0, false
		}
		at := pos + i
		if _, next, nested := opener(text, at); nested {
			depth++
			pos = next
			continue
		}
		if depth == 0 {
			return strings.TrimSpace(text[from:at]), at + len(fence), true
		}
		depth--
		pos = at + len(fence)
	}
	return "", 0, false
}

// closeDocument finds the fence closing a Markdown block. A bare fence line
// inside a document either closes it or opens or closes an unlabelled code
// block. Bare fence lines at depth zero are collected up to the next document
// opener: an odd count means the last one closes the document, an even count
// means the first one does and the rest follow the block.
func closeDocument(text string, from int) (content string, end int, ok bool) {
	depth := 0
	var closers []int
	pos := from
	for pos < len(text) {
		i := strings.Index(text[pos:], fence)
		if i < 0 {
			break
		}
		at := pos + i
		if label, next, nested := opener(text, at); nested {
			if depth == 0 && len(closers) > 0 && matchLabel(label, documentLabels) {
				break
			}
			depth++
			pos = next
			continue
		}
		pos = at + len(fence)
		if !fenceLine(text, at) {
			continue
		}
		if depth > 0 {
			depth--
			continue
		}
		closers = append(closers, at)
	}

	if len(closers) == 0 {
		return closeBlock(text, from)
	}
	at := closers[0]
	if len(closers)%2 == 1 {
		at = closers[len(closers)-1]
	}
	return strings.TrimSpace(text[from:at]), at + len(fence), true
}

// fenceLine reports whether the fence at i is alone on its line.
func fenceLine(text string, i int) bool {
	for j := i - 1; j >= 0 && text[j] != '\n'; j-- {
		if text[j] != ' ' && text[j] != '\t' {
			return false
		}
	}
	for j := i + len(fence); j < len(text) && text[j] != '\n'; j++ {
		if text[j] != ' ' && text[j] != '\t' && text[j] != '\r' {
			return false
		}
	}
	return true
}

func isLabelChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '_' || c == '+'
}

func matchLabel(label string, labels []string) bool {
	for _, l := range labels {
		if strings.EqualFold(label, l) {
			return true
		}
	}
	return false
}
