// Package markdown renders vault markdown as plain text for previews and titles.
package markdown

import (
	"path"
	"regexp"
	"strings"
)

var (
	fencedCode  = regexp.MustCompile("(?m)^```[^\n]*\n?")
	inlineCode  = regexp.MustCompile("`([^`]+)`")
	images      = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	links       = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	wikiLinks   = regexp.MustCompile(`\[\[([^\]|]+)(?:\|([^\]]+))?\]\]`)
	headings    = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	blockquotes = regexp.MustCompile(`(?m)^>\s?`)
	rules       = regexp.MustCompile(`(?m)^\s*([-*_])(\s*([-*_])){2,}\s*$`)
	bullets     = regexp.MustCompile(`(?m)^(\s*)[-*+]\s+(\[[ xX]\]\s+)?`)
	numbered    = regexp.MustCompile(`(?m)^(\s*)\d+[.)]\s+`)
	emphasis    = regexp.MustCompile(`(\*\*|__|\*)([^*_\n]+)(\*\*|__|\*)`)
	blankRuns   = regexp.MustCompile(`\n{3,}`)
)

// Plain strips markdown syntax from content and keeps the readable text.
// Code keeps its text without fences, links and images keep their label,
// and runs of blank lines collapse to one.
func Plain(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = fencedCode.ReplaceAllString(content, "")
	content = inlineCode.ReplaceAllString(content, "$1")
	content = images.ReplaceAllString(content, "$1")
	content = links.ReplaceAllString(content, "$1")
	content = wikiLinks.ReplaceAllStringFunc(content, func(m string) string {
		parts := wikiLinks.FindStringSubmatch(m)
		if parts[2] != "" {
			return parts[2]
		}
		return parts[1]
	})
	content = rules.ReplaceAllString(content, "")
	content = headings.ReplaceAllString(content, "")
	content = blockquotes.ReplaceAllString(content, "")
	content = bullets.ReplaceAllString(content, "$1")
	content = numbered.ReplaceAllString(content, "$1")
	content = emphasis.ReplaceAllString(content, "$2")
	content = blankRuns.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}

// Title returns the first level-one heading of content, or a name derived
// from the file name of docPath when there is none.
func Title(content, docPath string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			if title := strings.TrimSpace(line[2:]); title != "" {
				return title
			}
		}
	}

	name := strings.TrimSuffix(path.Base(docPath), path.Ext(docPath))
	return strings.NewReplacer("_", " ", "-", " ").Replace(name)
}
