package notes

import (
	"fmt"
	"strings"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"
)

const (
	fontName = "Times New Roman"
	fontSize = 13
)

// WriteDocx saves doc as a Word document at path.
func WriteDocx(doc Document, path string) error {
	out, err := godocx.NewDocument()
	if err != nil {
		return fmt.Errorf("docx: new document: %w", err)
	}
	addRun(out.AddParagraph(""), Banner, true, 16)

	if len(doc.Blocks) > 0 {
		for _, block := range doc.Blocks {
			addRun(out.AddParagraph(""), block.Heading, true, 14)
			addRun(out.AddParagraph(""), "• "+block.Body, false, fontSize)
		}
	} else {
		for _, line := range strings.Split(doc.Text, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}
			if heading, ok := strings.CutPrefix(trimmed, "#"); ok {
				addRun(out.AddParagraph(""), strings.TrimSpace(strings.TrimLeft(heading, "#")), true, 14)
				continue
			}
			if bullet, ok := cutBullet(trimmed); ok {
				addRun(out.AddParagraph(""), "• "+bullet, false, fontSize)
				continue
			}
			addRun(out.AddParagraph(""), trimmed, false, fontSize)
		}
	}

	if err := out.SaveTo(path); err != nil {
		return fmt.Errorf("docx: save %s: %w", path, err)
	}
	return nil
}

func cutBullet(line string) (string, bool) {
	for _, prefix := range []string{"- ", "* ", "• "} {
		if rest, ok := strings.CutPrefix(line, prefix); ok {
			return strings.TrimSpace(rest), true
		}
	}
	return "", false
}

func addRun(p *docx.Paragraph, text string, bold bool, size uint64) {
	text = strings.NewReplacer("**", "", "__", "", "`", "").Replace(text)
	run := p.AddText(text).Font(fontName).Size(size).Color("000000")
	if bold {
		run.Bold(true)
	}
}
