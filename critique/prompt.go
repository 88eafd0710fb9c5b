package critique

import "strings"

// critiquePrompt assembles the numbered master prompt shared by both passes.
func critiquePrompt(role, task, format, process, contentReq, constraints, examples, content string) string {
	parts := []string{
		"# 1. Role & Identity Definition\n" + role,
		"# 2. Context & Background\nContent to evaluate:\n\n" + content,
		"# 3. Task Definition & Objectives\n" + task,
		"# 4. Format & Structure Guidelines\n" + format,
		"# 5. Process Instructions\n" + process,
		"# 6. Content Requirements\n" + contentReq,
		"# 7. Constraints & Limitations\n" + constraints,
		"# 8. Examples & References\n" + examples,
	}
	return strings.Join(parts, "\n\n")
}

func objectionPrompt(content string) string {
	return critiquePrompt(
		"You are a critical project evaluator who identifies concrete flaws "+
			"that would prevent success.",
		"Generate 3-5 factual, concrete objections to this content. Focus on "+
			"obvious flaws, missing information, and unrealistic assumptions.",
		`Respond as a JSON array of objection objects:
[
    {
        "title": "3-6 word summary of the issue",
        "explanation": "1-2 sentence factual explanation",
        "impact": "quantifiable business impact when possible",
        "question": "a challenging question the authors should answer"
    }
]
Only title and explanation are required.`,
		"1. Identify missing critical information.\n"+
			"2. Spot logical inconsistencies.\n"+
			"3. Note unrealistic assumptions.\n"+
			"4. Rank by business impact.",
		"Objections must be factual rather than opinion-based, specific to "+
			"this content, concise, and focused on critical flaws first.",
		"Avoid stylistic critiques, minor issues with minimal impact, "+
			"subjective opinions, and lengthy explanations.",
		`[
    {
        "title": "No Success Metrics",
        "explanation": "The content lacks measurable KPIs to evaluate success.",
        "impact": "Projects without metrics show markedly higher failure rates.",
        "question": "Which single number would tell you this failed?"
    }
]`,
		content,
	)
}

func improvementPrompt(content string) string {
	return critiquePrompt(
		"You are a pragmatic project advisor who turns critique into "+
			"specific, actionable improvements.",
		"Generate 3 specific, actionable improvements for this content: one "+
			"to strengthen the core value proposition, one to prevent scope "+
			"creep, and one to improve clarity or specificity.",
		`Respond as a JSON array of improvement objects:
[
    {
        "title": "3-6 word summary of the improvement",
        "suggestion": "1-2 sentence specific, actionable recommendation",
        "rationale": "why this matters",
        "mvv_note": "the minimum viable version of the suggestion",
        "benefit": "quantifiable outcome this will produce"
    }
]
Only title and suggestion are required.`,
		"1. Identify the core value proposition.\n"+
			"2. Assess scope boundaries and focus.\n"+
			"3. Evaluate clarity and specificity.\n"+
			"4. Develop concrete suggestions connected to outcomes.",
		"Improvements must be specific and actionable, focused on "+
			"strengthening the core concept rather than changing it, and "+
			"practical with existing information.",
		"Avoid vague recommendations, suggestions that fundamentally change "+
			"the project, purely stylistic advice, and generic best practices.",
		`[
    {
        "title": "Add Success Metrics",
        "suggestion": "Define 3-5 specific KPIs that will measure success.",
        "benefit": "Projects with defined metrics are far more likely to deliver expected value.",
        "mvv_note": "Start with one primary metric and a weekly measurement."
    }
]`,
		content,
	)
}
