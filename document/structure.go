package document

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Unclassified is the reserved section name for free text that cannot be
// assigned to any recognized heading. It is retained rather than dropped.
const Unclassified = "unclassified"

// Kind discriminates the shape of a section's content.
type Kind string

const (
	// KindText is plain text content.
	KindText Kind = "text"

	// KindList is an ordered list of question/answer items (FAQ entries).
	KindList Kind = "list"

	// KindMap is a nested mapping of named subsections (ticket collections).
	KindMap Kind = "map"
)

// Structure is the canonical ordered mapping of section name to content
// extracted from a document. Section names are unique within a Structure.
type Structure struct {
	Sections []Section `json:"sections"`
}

// Section is one named entry in a Structure.
type Section struct {
	Name    string  `json:"name"`
	Content Content `json:"content"`
}

// Content holds one of three shapes, discriminated by Kind.
type Content struct {
	Kind     Kind      `json:"kind"`
	Text     string    `json:"text,omitempty"`
	Items    []Item    `json:"items,omitempty"`
	Children []Section `json:"children,omitempty"`
}

// Item is one entry of a list-shaped section, a question/answer pair.
type Item struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// TextContent builds a plain-text Content.
func TextContent(text string) Content {
	return Content{Kind: KindText, Text: text}
}

// ListContent builds a list-shaped Content.
func ListContent(items []Item) Content {
	return Content{Kind: KindList, Items: items}
}

// MapContent builds a nested-mapping Content.
func MapContent(children []Section) Content {
	return Content{Kind: KindMap, Children: children}
}

// Get returns the content for a section name.
func (s Structure) Get(name string) (Content, bool) {
	for _, sec := range s.Sections {
		if sec.Name == name {
			return sec.Content, true
		}
	}
	return Content{}, false
}

// Has reports whether a section name is present.
func (s Structure) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Names returns section names in order.
func (s Structure) Names() []string {
	names := make([]string, 0, len(s.Sections))
	for _, sec := range s.Sections {
		names = append(names, sec.Name)
	}
	return names
}

// Len returns the number of sections.
func (s Structure) Len() int {
	return len(s.Sections)
}

// add appends a section, merging content into an existing section of the same
// name so that names stay unique.
func (s *Structure) add(name string, c Content) {
	for i, sec := range s.Sections {
		if sec.Name == name {
			s.Sections[i].Content = mergeContent(sec.Content, c)
			return
		}
	}
	s.Sections = append(s.Sections, Section{Name: name, Content: c})
}

// mergeContent joins two contents for a duplicated section name. Text is
// concatenated, lists and children are appended; mismatched kinds keep the
// original and append the newcomer's text rendering.
func mergeContent(a, b Content) Content {
	if a.Kind != b.Kind {
		if a.Kind == KindText {
			a.Text = joinText(a.Text, b.render(""))
		}
		return a
	}
	switch a.Kind {
	case KindText:
		a.Text = joinText(a.Text, b.Text)
	case KindList:
		a.Items = append(a.Items, b.Items...)
	case KindMap:
		a.Children = append(a.Children, b.Children...)
	}
	return a
}

func joinText(a, b string) string {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "\n\n" + b
	}
}

// Equal compares content by structural equality. Whitespace runs inside text
// are normalized so whitespace-only edits do not count as changes.
func (c Content) Equal(other Content) bool {
	if c.Kind != other.Kind {
		return false
	}
	switch c.Kind {
	case KindText:
		return normalizeWhitespace(c.Text) == normalizeWhitespace(other.Text)
	case KindList:
		if len(c.Items) != len(other.Items) {
			return false
		}
		for i := range c.Items {
			if normalizeWhitespace(c.Items[i].Question) != normalizeWhitespace(other.Items[i].Question) ||
				normalizeWhitespace(c.Items[i].Answer) != normalizeWhitespace(other.Items[i].Answer) {
				return false
			}
		}
		return true
	case KindMap:
		if len(c.Children) != len(other.Children) {
			return false
		}
		for i := range c.Children {
			if c.Children[i].Name != other.Children[i].Name {
				return false
			}
			if !c.Children[i].Content.Equal(other.Children[i].Content) {
				return false
			}
		}
		return true
	}
	return false
}

// Equal compares two Structures by section order, names, and content.
func (s Structure) Equal(other Structure) bool {
	if len(s.Sections) != len(other.Sections) {
		return false
	}
	for i := range s.Sections {
		if s.Sections[i].Name != other.Sections[i].Name {
			return false
		}
		if !s.Sections[i].Content.Equal(other.Sections[i].Content) {
			return false
		}
	}
	return true
}

// Render emits the Structure as markdown, the inverse of extraction.
func (s Structure) Render() string {
	var b strings.Builder
	for _, sec := range s.Sections {
		if sec.Name == Unclassified {
			if t := strings.TrimSpace(sec.Content.Text); t != "" {
				b.WriteString(t)
				b.WriteString("\n\n")
			}
			continue
		}
		b.WriteString("## ")
		b.WriteString(headingTitle(sec.Name))
		b.WriteString("\n\n")
		b.WriteString(sec.Content.render("###"))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// render emits content as markdown. childPrefix is the heading marker used
// for nested sections.
func (c Content) render(childPrefix string) string {
	var b strings.Builder
	switch c.Kind {
	case KindText:
		b.WriteString(strings.TrimSpace(c.Text))
		b.WriteString("\n")
	case KindList:
		for _, it := range c.Items {
			b.WriteString("Q: ")
			b.WriteString(strings.TrimSpace(it.Question))
			b.WriteString("\nA: ")
			b.WriteString(strings.TrimSpace(it.Answer))
			b.WriteString("\n")
		}
	case KindMap:
		if childPrefix == "" {
			childPrefix = "###"
		}
		for _, child := range c.Children {
			b.WriteString(childPrefix)
			b.WriteString(" ")
			b.WriteString(headingTitle(child.Name))
			b.WriteString("\n\n")
			b.WriteString(child.Content.render(childPrefix + "#"))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// FlatText renders content as plain text for prompt context and fallbacks.
func (c Content) FlatText() string {
	switch c.Kind {
	case KindText:
		return strings.TrimSpace(c.Text)
	case KindList:
		var parts []string
		for _, it := range c.Items {
			parts = append(parts, "Q: "+it.Question+" A: "+it.Answer)
		}
		return strings.Join(parts, "\n")
	case KindMap:
		var parts []string
		for _, child := range c.Children {
			parts = append(parts, child.Name+": "+child.Content.FlatText())
		}
		return strings.Join(parts, "\n")
	}
	return ""
}

// CanonicalName folds a heading into a canonical kebab-case section name:
// lowercase, punctuation runs collapsed to single hyphens, trimmed.
func CanonicalName(heading string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(strings.TrimSpace(heading)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteRune('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// headingTitle converts a canonical name back into a display heading.
func headingTitle(name string) string {
	words := strings.Split(name, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		if isAcronym(w) {
			words[i] = strings.ToUpper(w)
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func isAcronym(w string) bool {
	switch w {
	case "faq", "prd", "api", "id":
		return true
	}
	return false
}

// normalizeWhitespace collapses whitespace runs to single spaces and trims.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ContentHash computes a SHA256 hash of raw content, used to detect unchanged
// input and to key the critique cache.
func ContentHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}
