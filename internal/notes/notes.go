package notes

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Banner is the title shown above the notes panel.
const Banner = "Cute Notes from Video"

const (
	sentenceSeparator   = ". "
	defaultHeadingWords = 4
)

// Block is one heading with its bullet.
type Block struct {
	Index   int    `json:"index"`
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// Document is the synthesized notes for one transcript.
type Document struct {
	Strategy string  `json:"strategy"`
	Blocks   []Block `json:"blocks,omitempty"`
	// Text is the rendered notes. It is exactly what the notes panel shows and
	// what the download contains.
	Text string `json:"text"`
}

// Split partitions summary on ". ", trims each fragment, drops the empty ones,
// and restores the period each separator consumed. Each surviving fragment
// becomes one numbered block whose heading is built from its first
// headingWords words.
func Split(summary string, headingWords int) []Block {
	if headingWords <= 0 {
		headingWords = defaultHeadingWords
	}
	parts := strings.Split(summary, sentenceSeparator)
	blocks := make([]Block, 0, len(parts))
	for i, part := range parts {
		fragment := strings.TrimSpace(part)
		if fragment == "" {
			continue
		}
		if i < len(parts)-1 {
			fragment += "."
		}
		index := len(blocks) + 1
		heading := "Topic " + strconv.Itoa(index)
		if title := headingFor(fragment, headingWords); title != "" {
			heading += ": " + title
		}
		blocks = append(blocks, Block{
			Index:   index,
			Heading: heading,
			Body:    fragment,
		})
	}
	return blocks
}

func headingFor(fragment string, words int) string {
	fields := strings.Fields(fragment)
	if len(fields) > words {
		fields = fields[:words]
	}
	heading := strings.TrimRightFunc(strings.Join(fields, " "), func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
	return cases.Title(language.English).String(heading)
}

// Render formats blocks as heading lines followed by one bullet each.
func Render(blocks []Block) string {
	var b strings.Builder
	for i, block := range blocks {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("### ")
		b.WriteString(block.Heading)
		b.WriteString("\n- ")
		b.WriteString(block.Body)
		b.WriteString("\n")
	}
	return b.String()
}
