package artifact

import (
	"fmt"
	"strings"

	"github.com/rbagg/ProjectAlignment/document"
	"github.com/rbagg/ProjectAlignment/version"
)

// promptSpec holds the parts of the master prompt structure. Every generator
// prompt is assembled from the same numbered sections so oracle behavior
// stays predictable across artifact kinds.
type promptSpec struct {
	role        string
	context     string
	task        string
	format      string
	process     string
	contentReq  string
	constraints string
	examples    string
}

func (p promptSpec) build() string {
	parts := []string{
		"# 1. Role & Identity Definition\n" + p.role,
		"# 2. Context & Background\n" + p.context,
		"# 3. Task Definition & Objectives\n" + p.task,
		"# 4. Format & Structure Guidelines\n" + p.format,
		"# 5. Process Instructions\n" + p.process,
		"# 6. Content Requirements\n" + p.contentReq,
		"# 7. Constraints & Limitations\n" + p.constraints,
	}
	if p.examples != "" {
		parts = append(parts, "# 8. Examples & References\n"+p.examples)
	}
	return strings.Join(parts, "\n\n")
}

// strictInstruction is appended on the retry after an unparsable oracle
// response.
const strictInstruction = "\n\nIMPORTANT: Respond with a single valid JSON " +
	"object matching the schema above and nothing else. No markdown fences, " +
	"no explanation, no surrounding prose."

// formatSnapshot renders the current structure of every connected document
// as prompt context.
func formatSnapshot(snap Snapshot) string {
	var b strings.Builder
	for _, docType := range document.Types() {
		s, ok := snap[docType]
		if !ok || s.Len() == 0 {
			continue
		}
		fmt.Fprintf(&b, "== %s ==\n", snapshotHeading(docType))
		for _, sec := range s.Sections {
			text := sec.Content.FlatText()
			if text == "" {
				continue
			}
			fmt.Fprintf(&b, "%s: %s\n", sec.Name, text)
		}
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return "(no document content available)\n"
	}
	return b.String()
}

func snapshotHeading(t document.Type) string {
	switch t {
	case document.TypeRequirements:
		return "Requirements Document"
	case document.TypePressRelease:
		return "Press Release / FAQ"
	case document.TypeStrategy:
		return "Strategy Document"
	case document.TypeTickets:
		return "Tickets"
	}
	return string(t)
}

// formatChanges renders recent change records as prompt context for
// change-driven messaging.
func formatChanges(changes map[document.Type]*version.ChangeRecord) string {
	if len(changes) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("== Recent Changes ==\n")
	for _, docType := range document.Types() {
		rec, ok := changes[docType]
		if !ok || rec == nil || rec.IsEmpty() {
			continue
		}
		fmt.Fprintf(&b, "Changes to %s:\n", docType)
		if len(rec.Added) > 0 {
			fmt.Fprintf(&b, "  Added: %s\n", strings.Join(rec.Added, ", "))
		}
		if len(rec.Modified) > 0 {
			fmt.Fprintf(&b, "  Modified: %s\n", strings.Join(rec.ModifiedNames(), ", "))
		}
		if len(rec.Removed) > 0 {
			fmt.Fprintf(&b, "  Removed: %s\n", strings.Join(rec.Removed, ", "))
		}
	}
	return b.String()
}

// sectionText pulls the flat text of a named section from a document type in
// the snapshot, or empty when absent.
func sectionText(snap Snapshot, docType document.Type, name string) string {
	s, ok := snap[docType]
	if !ok {
		return ""
	}
	c, ok := s.Get(name)
	if !ok {
		return ""
	}
	return c.FlatText()
}

// firstSentence truncates text to its first sentence, capped at maxLen runes.
func firstSentence(text string, maxLen int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if i := strings.IndexAny(text, ".!?"); i >= 0 {
		text = text[:i+1]
	}
	runes := []rune(text)
	if len(runes) > maxLen {
		text = strings.TrimRight(string(runes[:maxLen]), " .,;:") + "..."
	}
	return text
}
