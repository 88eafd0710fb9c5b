package artifact

import (
	"context"
	"fmt"
	"strings"

	"github.com/rbagg/ProjectAlignment/document"
)

// generateDescription produces the fixed-shape project description. The
// three-sentence and three-paragraph counts are enforced after synthesis:
// extra entries are truncated and missing entries are padded from the
// rule-based fallback, so the contract holds regardless of what the oracle
// returned.
func (g *Generator) generateDescription(ctx context.Context, req Request) (*ProjectDescription, bool) {
	fallback := g.ruleBasedDescription(req)

	var parsed ProjectDescription
	if !g.synthesize(ctx, g.describe, descriptionPrompt(req), &parsed) {
		return fallback, true
	}

	parsed.ThreeSentences = normalizeTriple(parsed.ThreeSentences, fallback.ThreeSentences)
	parsed.ThreeParagraphs = normalizeTriple(parsed.ThreeParagraphs, fallback.ThreeParagraphs)
	return &parsed, false
}

// normalizeTriple forces a slice to exactly three nonempty entries, padding
// from pad in order.
func normalizeTriple(got, pad []string) []string {
	out := make([]string, 0, 3)
	for _, s := range got {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
		if len(out) == 3 {
			return out
		}
	}
	for i := len(out); i < 3; i++ {
		out = append(out, pad[i])
	}
	return out
}

func descriptionPrompt(req Request) string {
	spec := promptSpec{
		role: "You are a project communications specialist who distills " +
			"complex initiatives into clear, concise descriptions for both " +
			"technical and non-technical stakeholders.",
		context: "Create standardized descriptions for a project from this " +
			"documentation:\n\n" + formatSnapshot(req.Snapshot),
		task: "Generate two versions of the project description:\n" +
			"1. A three-sentence description covering what the project is, " +
			"the customer pain point it solves, and how it is being addressed.\n" +
			"2. A three-paragraph elaboration of the same three points.",
		format: `Respond as JSON:
{
    "three_sentences": [
        "What the project is",
        "The customer pain point",
        "How the solution addresses it"
    ],
    "three_paragraphs": [
        "What the project is, elaborated (3-5 sentences)",
        "The customer pain point, elaborated (3-5 sentences)",
        "The solution approach, elaborated (3-5 sentences)"
    ]
}
Both arrays must contain exactly three entries.`,
		process: "1. Identify the project's core purpose.\n" +
			"2. Identify the specific customer pain point.\n" +
			"3. Extract the key elements of the solution approach.\n" +
			"4. Draft three focused sentences, one per aspect.\n" +
			"5. Expand each sentence into a cohesive paragraph.",
		contentReq: "Include the project's primary function and scope, the " +
			"specific problems being solved, the core approach, and concrete " +
			"expected outcomes. Be specific rather than generic, active " +
			"rather than passive.",
		constraints: "Avoid marketing hyperbole, unnecessary implementation " +
			"detail, vague descriptions that could apply to any project, and " +
			"scope not supported by the provided documentation.",
	}
	return spec.build()
}

// ruleBasedDescription assembles a description directly from section content
// when the oracle is unavailable.
func (g *Generator) ruleBasedDescription(req Request) *ProjectDescription {
	name := req.ProjectName
	if name == "" {
		name = "This project"
	}

	overview := sectionText(req.Snapshot, document.TypeRequirements, "overview")
	problem := sectionText(req.Snapshot, document.TypeRequirements, "problem-statement")
	solution := sectionText(req.Snapshot, document.TypeRequirements, "solution")
	if solution == "" {
		solution = sectionText(req.Snapshot, document.TypeStrategy, "approach")
	}

	sentences := []string{
		describeOr(fmt.Sprintf("%s is an initiative to %s", name, firstSentence(overview, 120)),
			overview, name+" is an initiative under active definition."),
		describeOr("It addresses the customer pain point of "+firstSentence(problem, 120),
			problem, "It addresses a customer pain point still being documented."),
		describeOr("The solution works by "+firstSentence(solution, 120),
			solution, "The solution approach has not been documented yet."),
	}

	paragraphs := []string{
		paragraphOr("What it is: ", overview,
			name+" has no overview section in its connected documents yet."),
		paragraphOr("The problem: ", problem,
			"No problem statement has been documented for "+name+" yet."),
		paragraphOr("The approach: ", solution,
			"No solution approach has been documented for "+name+" yet."),
	}

	return &ProjectDescription{ThreeSentences: sentences, ThreeParagraphs: paragraphs}
}

func describeOr(sentence, source, placeholder string) string {
	if strings.TrimSpace(source) == "" {
		return placeholder
	}
	if !strings.HasSuffix(sentence, ".") && !strings.HasSuffix(sentence, "...") {
		sentence += "."
	}
	return sentence
}

func paragraphOr(prefix, source, placeholder string) string {
	source = strings.TrimSpace(source)
	if source == "" {
		return placeholder
	}
	const maxLen = 600
	runes := []rune(source)
	if len(runes) > maxLen {
		source = string(runes[:maxLen]) + "..."
	}
	return prefix + source
}
