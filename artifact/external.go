package artifact

import (
	"context"

	"github.com/rbagg/ProjectAlignment/document"
)

// generateExternal produces the customer-facing message. Every field except
// benefits is mandatory; a response missing a mandatory field counts as
// malformed and triggers the retry-then-degrade path.
func (g *Generator) generateExternal(ctx context.Context, req Request) (*ExternalMessage, bool) {
	var parsed ExternalMessage
	if !g.synthesize(ctx, g.message, externalPrompt(req), &parsed) ||
		parsed.Headline == "" || parsed.PainPoint == "" ||
		parsed.Solution == "" || parsed.CallToAction == "" {
		return g.ruleBasedExternal(req), true
	}
	return &parsed, false
}

func externalPrompt(req Request) string {
	spec := promptSpec{
		role: "You are a product marketing writer who produces direct, " +
			"factual customer-facing messaging without hype.",
		context: "Create external messaging for a product from this " +
			"documentation:\n\n" + formatSnapshot(req.Snapshot),
		task: "Generate customer-facing messaging with a benefit-focused " +
			"headline, a recognizable pain point, the solution, specific " +
			"benefits, and a straightforward call to action.",
		format: `Respond as JSON:
{
    "headline": "Direct statement of the primary benefit (5-9 words)",
    "pain_point": "Customer problem statement (1-2 sentences)",
    "solution": "How the product solves this (1-2 sentences)",
    "benefits": "Up to 3 specific benefits, with metrics when possible",
    "call_to_action": "Clear next step (1 sentence)"
}`,
		process: "1. Identify the core customer problem.\n" +
			"2. Extract the key solution capabilities.\n" +
			"3. Determine measurable benefits.\n" +
			"4. Draft direct, factual statements for each field.",
		contentReq: "Content must be factual, specific, quantifiable where " +
			"possible, benefit-focused, and written in active voice under 20 " +
			"words per sentence.",
		constraints: "Do not use marketing hype words, subjective claims " +
			"without evidence, passive voice, or vague generic statements.",
		examples: `{
    "headline": "Cut documentation time by 62%",
    "pain_point": "Your team wastes hours weekly reconciling inconsistent documentation across systems.",
    "solution": "Our tool monitors all connected documents for changes and automatically flags inconsistencies.",
    "benefits": "Reduce documentation busywork. Decrease implementation errors. Improve cross-team alignment.",
    "call_to_action": "Start a trial with your actual documents to measure time savings."
}`,
	}
	return spec.build()
}

func (g *Generator) ruleBasedExternal(req Request) *ExternalMessage {
	name := req.ProjectName
	if name == "" {
		name = "Our product"
	}

	headline := sectionText(req.Snapshot, document.TypePressRelease, "headline")
	if headline == "" {
		headline = name + ": a better way to work"
	}

	painPoint := sectionText(req.Snapshot, document.TypeRequirements, "problem-statement")
	if painPoint == "" {
		painPoint = "Teams struggle with the problem this product addresses."
	} else {
		painPoint = firstSentence(painPoint, 200)
	}

	solution := sectionText(req.Snapshot, document.TypeRequirements, "solution")
	if solution == "" {
		solution = sectionText(req.Snapshot, document.TypePressRelease, "press-release")
	}
	if solution == "" {
		solution = name + " addresses this problem directly."
	} else {
		solution = firstSentence(solution, 200)
	}

	benefits := sectionText(req.Snapshot, document.TypeStrategy, "business-value")
	if benefits != "" {
		benefits = firstSentence(benefits, 200)
	}

	return &ExternalMessage{
		Headline:     firstSentence(headline, 80),
		PainPoint:    painPoint,
		Solution:     solution,
		Benefits:     benefits,
		CallToAction: "Get in touch to see " + name + " with your own data.",
	}
}
