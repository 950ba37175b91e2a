// Package sanitize converts model output into text that is sensible to
// vocalize. It strips markdown and markup decoration with a fixed sequence
// of pattern passes. This is a conservative, lossy cleanup, not a markdown
// parser.
package sanitize

import (
	"regexp"
	"strings"
)

// Compiled once; Clean runs on every spoken reply.
var (
	angleBrackets  = regexp.MustCompile(`[<>]`)
	boldMarkers    = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicMarkers  = regexp.MustCompile(`\*(.*?)\*`)
	codeSpans      = regexp.MustCompile("`")
	headingMarkers = regexp.MustCompile(`#{1,6}\s`)
	markdownLinks  = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
)

// Clean strips markup decoration from text before it is handed to a speech
// backend. It is pure and never fails; the result may be empty.
//
// Passes run in a fixed order: angle brackets, bold before italic (a single
// greedy asterisk pass would corrupt doubled markers), code spans, heading
// markers, then link labels, with a final whitespace trim.
func Clean(text string) string {
	cleaned := angleBrackets.ReplaceAllString(text, "")
	cleaned = boldMarkers.ReplaceAllString(cleaned, "$1")
	cleaned = italicMarkers.ReplaceAllString(cleaned, "$1")
	cleaned = codeSpans.ReplaceAllString(cleaned, "")
	cleaned = headingMarkers.ReplaceAllString(cleaned, "")
	cleaned = markdownLinks.ReplaceAllString(cleaned, "$1")
	return strings.TrimSpace(cleaned)
}
