// Package chunker provides a heading-aware markdown chunking processor.
//
// Documents are split at level-2 and level-3 headings. Sections longer than
// the bound are re-split at blank lines and their paragraphs greedily packed.
// A paragraph is never split, so one longer than the bound becomes its own
// oversized chunk.
package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// DefaultMaxChars is the default chunk bound in characters (~500 tokens).
const DefaultMaxChars = domain.DefaultChunkMaxChars

var (
	headingPattern   = regexp.MustCompile(`^#{2,3}\s`)
	paragraphPattern = regexp.MustCompile(`\n\n+`)
)

// Processor splits document content into bounded chunks.
type Processor struct {
	maxChars int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithMaxChars sets the chunk bound in characters.
func WithMaxChars(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxChars = n
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{maxChars: DefaultMaxChars}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// MaxChars returns the configured bound.
func (p *Processor) MaxChars() int {
	return p.maxChars
}

// Chunk splits content into chunks of source.
func (p *Processor) Chunk(source, content string) []domain.Chunk {
	return Chunk(source, content, p.maxChars)
}

// Chunk splits content into chunks bounded by maxChars characters.
// Empty or whitespace-only content yields no chunks.
func Chunk(source, content string, maxChars int) []domain.Chunk {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	var chunks []domain.Chunk
	emit := func(text string) {
		chunks = append(chunks, domain.Chunk{
			SourceDocument: source,
			Index:          len(chunks),
			Content:        text,
		})
	}

	for _, section := range splitSections(content) {
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}
		if utf8.RuneCountInString(section) <= maxChars {
			emit(section)
			continue
		}

		var current string
		currentLen := 0
		for _, para := range paragraphPattern.Split(section, -1) {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}
			paraLen := utf8.RuneCountInString(para)
			if current != "" && currentLen+paraLen+2 > maxChars {
				emit(current)
				current, currentLen = "", 0
			}
			if current == "" {
				current, currentLen = para, paraLen
				continue
			}
			current += "\n\n" + para
			currentLen += paraLen + 2
		}
		if current != "" {
			emit(current)
		}
	}

	return chunks
}

// splitSections cuts content before every line that opens a ## or ### heading.
// Text before the first heading is its own section.
func splitSections(content string) []string {
	var sections []string
	start := 0
	for lineStart := 0; lineStart < len(content); {
		if lineStart > start && headingPattern.MatchString(content[lineStart:min(len(content), lineStart+5)]) {
			sections = append(sections, content[start:lineStart])
			start = lineStart
		}
		next := strings.IndexByte(content[lineStart:], '\n')
		if next < 0 {
			break
		}
		lineStart += next + 1
	}
	return append(sections, content[start:])
}
