// Package content turns raw markdown rulebooks into retrievable chunks.
package content

import (
	"fmt"
	"strings"
	"time"

	"github.com/aeonisk/arbiter/internal/domain"
)

const (
	// MaxChunkChars is the hard upper bound on chunk length. A chunk may
	// only exceed it when a single line is longer than the bound itself.
	MaxChunkChars = 2000
	// breakSearchLimit is how far into the buffer we look for a natural
	// break point before force-cutting.
	breakSearchLimit = 1800
)

// ProcessMarkdownFile splits one markdown file into content chunks at heading
// boundaries, force-closing any buffer that grows past MaxChunkChars.
// Empty input yields zero chunks.
func ProcessMarkdownFile(filename, content string) []domain.ContentChunk {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	var (
		chunks     []domain.ContentChunk
		buf        strings.Builder
		section    string
		subsection string
		seq        int
	)

	flush := func(text string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		chunks = append(chunks, newChunk(filename, section, subsection, text, seq))
		seq++
	}

	for _, line := range strings.Split(content, "\n") {
		switch {
		case strings.HasPrefix(line, "# "):
			flush(buf.String())
			buf.Reset()
			section = strings.TrimSpace(strings.TrimPrefix(line, "# "))
			subsection = ""
			continue
		case strings.HasPrefix(line, "## "):
			flush(buf.String())
			buf.Reset()
			subsection = strings.TrimSpace(strings.TrimPrefix(line, "## "))
			continue
		}

		buf.WriteString(line)
		buf.WriteString("\n")

		for buf.Len() > MaxChunkChars {
			head, rest := splitAtBreak(buf.String())
			flush(head)
			buf.Reset()
			buf.WriteString(rest)
			if rest == "" {
				break
			}
		}
	}

	flush(buf.String())
	return chunks
}

// splitAtBreak cuts text at the best available break point: the last
// paragraph break before breakSearchLimit, else the last sentence end, else
// the last table-row boundary, else a hard cut.
func splitAtBreak(text string) (head, rest string) {
	window := text
	if len(window) > breakSearchLimit {
		window = window[:breakSearchLimit]
	}

	cut := strings.LastIndex(window, "\n\n")
	if cut <= 0 {
		cut = strings.LastIndex(window, ".\n")
		if cut > 0 {
			cut += 2 // keep the sentence terminator with the head
		}
	}
	if cut <= 0 {
		cut = strings.LastIndex(window, "|\n")
		if cut > 0 {
			cut += 2
		}
	}
	if cut <= 0 {
		cut = breakSearchLimit
		if cut > len(text) {
			cut = len(text)
		}
	}

	return text[:cut], text[cut:]
}

func newChunk(filename, section, subsection, text string, seq int) domain.ContentChunk {
	return domain.ContentChunk{
		ID:   fmt.Sprintf("%s-%03d", strings.TrimSuffix(filename, ".md"), seq),
		Text: text,
		Metadata: domain.ChunkMetadata{
			Source:     filename,
			Section:    section,
			Subsection: subsection,
			Type:       inferContentType(filename, text),
			Keywords:   extractKeywords(text),
		},
		CreatedAt: time.Now().UTC(),
	}
}
