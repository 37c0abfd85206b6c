package notes

import "strings"

const studyNotesInstruction = `Read the following transcript and create cute study notes.
Automatically detect main topics from the content.
For each topic:
- Use the topic as a heading with an emoji
- List key points as bullet points
Keep it concise, cute, and easy to study.

Transcript: `

// StudyNotesPrompt wraps a transcript in the instruction used by the prompt strategy.
func StudyNotesPrompt(transcript string) string {
	return studyNotesInstruction + strings.TrimSpace(transcript)
}
