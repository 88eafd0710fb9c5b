package document

import (
	"regexp"
	"strings"
)

// Heading patterns recognized by the extractor: markdown headings and
// numbered headings ("2.1 Scope"). Numbered matches are capped in length and
// restricted to expected section names so ordinary numbered lists inside a
// section do not fragment the Structure.
var (
	markdownHeadingPattern = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*$`)
	numberedHeadingPattern = regexp.MustCompile(`^\d+(?:\.\d+)*\.?\s+(.+?)\s*$`)
)

const maxNumberedHeadingLen = 80

// sectionAliases folds common alternate headings onto expected identifiers.
var sectionAliases = map[string]string{
	"faq":  "frequently-asked-questions",
	"faqs": "frequently-asked-questions",
}

// Extract parses raw document text into a canonical Structure and validates
// which expected sections for the type are present. Extraction is
// deterministic: identical input always yields an identical Structure.
func Extract(raw string, t Type) (Structure, ValidationReport) {
	s := extractStructure(raw, t)
	return s, Validate(s, t)
}

// rawSection accumulates lines under one recognized heading.
type rawSection struct {
	name     string
	lines    []string
	children []*rawSection
}

func extractStructure(raw string, t Type) Structure {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	lines := strings.Split(raw, "\n")

	var leading []string
	var tops []*rawSection
	var current *rawSection // current top-level section
	var child *rawSection   // current nested section, nil at top level

	for _, line := range lines {
		name, level, ok := matchHeading(line, t)
		if !ok {
			switch {
			case child != nil:
				child.lines = append(child.lines, line)
			case current != nil:
				current.lines = append(current.lines, line)
			default:
				leading = append(leading, line)
			}
			continue
		}

		if level >= 3 && current != nil {
			child = &rawSection{name: name}
			current.children = append(current.children, child)
			continue
		}

		current = &rawSection{name: name}
		child = nil
		tops = append(tops, current)
	}

	var s Structure

	// No recognized headings at all: everything, even an empty document, is
	// retained under the reserved unclassified key.
	if len(tops) == 0 {
		s.add(Unclassified, TextContent(strings.TrimSpace(raw)))
		if t == TypeTickets {
			s = wrapTickets(s)
		}
		return s
	}

	if lead := strings.TrimSpace(strings.Join(leading, "\n")); lead != "" {
		s.add(Unclassified, TextContent(lead))
	}

	for _, top := range tops {
		s.add(top.name, buildContent(top, t))
	}

	if t == TypeTickets {
		s = wrapTickets(s)
	}
	return s
}

// matchHeading recognizes a heading line and returns its canonical name and
// level. Numbered headings count as level 2 and are recognized only when
// they name an expected section for the type; "1. Identify the problem." is
// a list item, not a heading.
func matchHeading(line string, t Type) (name string, level int, ok bool) {
	if m := markdownHeadingPattern.FindStringSubmatch(line); m != nil {
		return resolveAlias(CanonicalName(m[2])), len(m[1]), true
	}
	if m := numberedHeadingPattern.FindStringSubmatch(line); m != nil && len(line) <= maxNumberedHeadingLen {
		n := resolveAlias(CanonicalName(m[1]))
		if isExpectedSection(n, t) {
			return n, 2, true
		}
	}
	return "", 0, false
}

func isExpectedSection(name string, t Type) bool {
	for _, expected := range ExpectedSections(t) {
		if name == expected {
			return true
		}
	}
	return false
}

func resolveAlias(name string) string {
	if alias, ok := sectionAliases[name]; ok {
		return alias
	}
	return name
}

// buildContent converts an accumulated raw section into typed content.
func buildContent(sec *rawSection, t Type) Content {
	text := strings.TrimSpace(strings.Join(sec.lines, "\n"))

	if t == TypePressRelease && sec.name == "frequently-asked-questions" {
		items := parseFAQ(sec)
		if len(items) > 0 {
			return ListContent(items)
		}
		return TextContent(text)
	}

	if len(sec.children) > 0 {
		children := make([]Section, 0, len(sec.children)+1)
		if text != "" {
			children = append(children, Section{Name: "summary", Content: TextContent(text)})
		}
		for _, c := range sec.children {
			children = append(children, Section{
				Name:    c.name,
				Content: TextContent(strings.TrimSpace(strings.Join(c.lines, "\n"))),
			})
		}
		return MapContent(children)
	}

	return TextContent(text)
}

// parseFAQ decomposes a section into question/answer items using alternating
// Q:/A: markers. Malformed pairs are skipped, never fatal.
func parseFAQ(sec *rawSection) []Item {
	lines := append([]string{}, sec.lines...)
	for _, c := range sec.children {
		// Child headings inside a FAQ are treated as questions.
		lines = append(lines, "Q: "+headingTitle(c.name))
		lines = append(lines, c.lines...)
	}

	var items []Item
	var question string
	var answer []string
	haveQuestion := false

	flush := func() {
		if haveQuestion && len(answer) > 0 {
			items = append(items, Item{
				Question: question,
				Answer:   strings.TrimSpace(strings.Join(answer, "\n")),
			})
		}
		question, answer, haveQuestion = "", nil, false
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "*"))
		lower := strings.ToLower(trimmed)
		switch {
		case strings.HasPrefix(lower, "q:"):
			flush()
			question = strings.TrimSpace(trimmed[2:])
			haveQuestion = true
		case strings.HasPrefix(lower, "a:"):
			if haveQuestion {
				answer = append(answer, strings.TrimSpace(trimmed[2:]))
			}
			// A stray answer with no question is malformed and skipped.
		default:
			if haveQuestion && len(answer) > 0 && trimmed != "" {
				answer = append(answer, trimmed)
			}
		}
	}
	flush()

	return items
}

// wrapTickets folds a ticket document into a single "tickets" section whose
// children are one subsection per ticket, so section-level diffing covers
// added, modified, and removed tickets.
func wrapTickets(s Structure) Structure {
	if s.Has("tickets") {
		return s
	}

	var out Structure
	var children []Section
	for _, sec := range s.Sections {
		if sec.Name == Unclassified {
			out.add(Unclassified, sec.Content)
			continue
		}
		if sec.Content.Kind == KindMap {
			children = append(children, sec.Content.Children...)
			continue
		}
		children = append(children, sec)
	}
	if len(children) > 0 {
		out.add("tickets", MapContent(children))
	}
	return out
}
