package script

import (
	"fmt"
	"strings"
)

const systemPrompt = `You write scripts for relatable, conversational explainer videos that will be read by a text-to-speech voice. Plain spoken English, short sentences, no stage directions, no headings.`

func coreQuestionPrompt(topic, context, book string) string {
	return fmt.Sprintf(`Combine the topic, the viewer's situation and the book below into ONE question the video will answer.
The question should be specific, personal and answerable with the book's ideas.

Topic: %s
Viewer context: %s
Book: %s

Reply in exactly this form:
**Core Question:** <the question>`, topic, context, book)
}

func principlesPrompt(book, question string) string {
	return fmt.Sprintf(`List the 3 to 5 foundational principles from %q that best answer this question:
%s

Use exactly this form for each:
1. **Principle Name:** <name> **Description:** <one or two sentences>`, book, question)
}

func draftPrompt(question, book, outline string, target int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write the full narration script answering: %s\n", question)
	fmt.Fprintf(&sb, "Draw on the ideas in %q, following this outline in order:\n\n", book)
	sb.WriteString(outline)
	fmt.Fprintf(&sb, "\n\nLength: about %d words. Open with a hook in the first two sentences. ", target)
	sb.WriteString("Close by coming back to the question. Return only the script text.")
	return sb.String()
}

func rewritePrompt(text string, target int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Rewrite the text below as a narration script of about %d words.\n", target)
	sb.WriteString("Keep every fact and the order of ideas. Drop headings, lists and citations; ")
	sb.WriteString("turn them into spoken sentences. Return only the script text.\n\n")
	sb.WriteString(text)
	return sb.String()
}
