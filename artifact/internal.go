package artifact

import (
	"context"
	"fmt"
	"strings"

	"github.com/rbagg/ProjectAlignment/document"
	"github.com/rbagg/ProjectAlignment/version"
)

// generateInternal produces the internal stakeholder message. The variant is
// selected by whether the project has a baseline: no baseline means a first
// brief, a baseline means a change-driven update.
func (g *Generator) generateInternal(ctx context.Context, req Request) (*InternalMessage, bool) {
	if req.HasBaseline {
		return g.generateChangeUpdate(ctx, req)
	}
	return g.generateInitialBrief(ctx, req)
}

func (g *Generator) generateInitialBrief(ctx context.Context, req Request) (*InternalMessage, bool) {
	var parsed struct {
		Subject   string `json:"subject"`
		WhatItIs  string `json:"what_it_is"`
		TeamNeeds string `json:"team_needs"`
	}
	if !g.synthesize(ctx, g.message, initialBriefPrompt(req), &parsed) ||
		parsed.WhatItIs == "" {
		return g.ruleBasedInitialBrief(req), true
	}

	msg := &InternalMessage{
		Variant: VariantInitial,
		Subject: parsed.Subject,
		Initial: &InitialBrief{
			WhatItIs:  parsed.WhatItIs,
			TeamNeeds: parsed.TeamNeeds,
		},
	}
	if msg.Subject == "" {
		msg.Subject = internalSubject(req, "Brief")
	}
	if msg.Initial.TeamNeeds == "" {
		msg.Initial.TeamNeeds = defaultTeamNeeds
	}
	return msg, false
}

func (g *Generator) generateChangeUpdate(ctx context.Context, req Request) (*InternalMessage, bool) {
	var parsed struct {
		Subject        string `json:"subject"`
		WhatChanged    string `json:"what_changed"`
		CustomerImpact string `json:"customer_impact"`
		BusinessImpact string `json:"business_impact"`
		TimelineImpact string `json:"timeline_impact"`
		TeamNeeds      string `json:"team_needs"`
	}
	if !g.synthesize(ctx, g.message, changeUpdatePrompt(req), &parsed) ||
		parsed.WhatChanged == "" || parsed.CustomerImpact == "" || parsed.BusinessImpact == "" {
		return g.ruleBasedChangeUpdate(req), true
	}

	msg := &InternalMessage{
		Variant: VariantChangeDriven,
		Subject: parsed.Subject,
		Change: &ChangeUpdate{
			WhatChanged:    parsed.WhatChanged,
			CustomerImpact: parsed.CustomerImpact,
			BusinessImpact: parsed.BusinessImpact,
			TimelineImpact: parsed.TimelineImpact,
			TeamNeeds:      parsed.TeamNeeds,
		},
	}
	if msg.Subject == "" {
		msg.Subject = internalSubject(req, "Update")
	}
	return msg, false
}

const defaultTeamNeeds = "Review the connected documents and flag anything " +
	"that conflicts with your team's current commitments."

func internalSubject(req Request, kind string) string {
	name := req.ProjectName
	if name == "" {
		name = "Project"
	}
	return fmt.Sprintf("Internal %s: %s", kind, name)
}

func initialBriefPrompt(req Request) string {
	spec := promptSpec{
		role: "You are an internal communications strategist who translates " +
			"complex initiatives into concise, actionable briefs that drive " +
			"alignment across teams.",
		context: "Create the first internal brief for a project from this " +
			"documentation:\n\n" + formatSnapshot(req.Snapshot),
		task: "Generate an internal brief explaining what the project is and " +
			"what internal teams need to do about it.",
		format: `Respond as JSON:
{
    "subject": "Internal Brief: [Project Name]",
    "what_it_is": "What the project is, the pain point it addresses, and the approach (3-5 sentences)",
    "team_needs": "What internal teams need to know or do (2-3 sentences)"
}`,
		process: "1. Review the documentation to understand purpose and scope.\n" +
			"2. Identify the customer pain point and the approach.\n" +
			"3. Determine what internal teams must know or prepare.\n" +
			"4. Draft clear, concise messaging for each field.",
		contentReq: "State the project scope, the specific customer problems " +
			"being solved, and concrete expectations for internal teams. Stay " +
			"accessible to non-technical stakeholders.",
		constraints: "Avoid marketing hype, unexplained jargon, vague " +
			"generalities, and commitments not supported by the documentation.",
	}
	return spec.build()
}

func changeUpdatePrompt(req Request) string {
	spec := promptSpec{
		role: "You are an internal change-communications specialist who " +
			"explains what changed in a project, why it matters, and how it " +
			"affects the business.",
		context: "A tracked project's documents have changed. Current " +
			"documentation:\n\n" + formatSnapshot(req.Snapshot) + "\n" +
			formatChanges(req.Changes),
		task: "Generate an internal update explaining what changed, how the " +
			"changes affect the customer pain point being addressed, and the " +
			"business impact.",
		format: `Respond as JSON:
{
    "subject": "Internal Update: [Project Name with update type]",
    "what_changed": "What changed in the project (2-4 sentences)",
    "customer_impact": "How the changes affect the customer pain point (2-3 sentences)",
    "business_impact": "The business impact of the changes (2-3 sentences)",
    "timeline_impact": "Timeline effects, or omit if none are apparent",
    "team_needs": "New expectations for internal teams, or omit if none"
}`,
		process: "1. Review the listed changes and their scope.\n" +
			"2. Assess how they affect the project's purpose or outcomes.\n" +
			"3. Evaluate customer and business implications.\n" +
			"4. Draft messaging focused on meaningful changes only.",
		contentReq: "Describe specifically what changed, not just that " +
			"something changed. Cover both opportunities and challenges.",
		constraints: "Avoid vague references to updates without specifics, " +
			"downplaying significant changes, and speculation beyond the " +
			"provided material.",
	}
	return spec.build()
}

func (g *Generator) ruleBasedInitialBrief(req Request) *InternalMessage {
	name := req.ProjectName
	if name == "" {
		name = "Project"
	}

	overview := sectionText(req.Snapshot, document.TypeRequirements, "overview")
	problem := sectionText(req.Snapshot, document.TypeRequirements, "problem-statement")

	var b strings.Builder
	if overview != "" {
		fmt.Fprintf(&b, "%s is our initiative to %s", name, firstSentence(overview, 150))
	} else {
		fmt.Fprintf(&b, "%s is a newly connected initiative; its overview has not been documented yet.", name)
	}
	if problem != "" {
		fmt.Fprintf(&b, " It addresses the customer pain point of %s", firstSentence(problem, 150))
	}

	return &InternalMessage{
		Variant: VariantInitial,
		Subject: internalSubject(req, "Brief"),
		Initial: &InitialBrief{
			WhatItIs:  strings.TrimSpace(b.String()),
			TeamNeeds: defaultTeamNeeds,
		},
	}
}

func (g *Generator) ruleBasedChangeUpdate(req Request) *InternalMessage {
	problem := sectionText(req.Snapshot, document.TypeRequirements, "problem-statement")
	businessValue := sectionText(req.Snapshot, document.TypeStrategy, "business-value")

	customerImpact := "These changes maintain our focus on addressing key customer pain points."
	if problem != "" {
		customerImpact = "These changes refine our approach to the customer pain point of " +
			firstSentence(problem, 120)
	}

	businessImpact := "The business impact of these changes has not been assessed yet."
	if businessValue != "" {
		businessImpact = "These changes support the documented business value: " +
			firstSentence(businessValue, 150)
	}

	return &InternalMessage{
		Variant: VariantChangeDriven,
		Subject: internalSubject(req, "Update"),
		Change: &ChangeUpdate{
			WhatChanged:    describeChangeSummary(req.Changes),
			CustomerImpact: customerImpact,
			BusinessImpact: businessImpact,
		},
	}
}

// describeChangeSummary builds a factual summary of recent change records.
func describeChangeSummary(changes map[document.Type]*version.ChangeRecord) string {
	var parts []string
	for _, docType := range document.Types() {
		rec, ok := changes[docType]
		if !ok || rec == nil || rec.IsEmpty() {
			continue
		}
		if n := len(rec.Added); n > 0 {
			parts = append(parts, fmt.Sprintf("added %d section(s) to the %s document (%s)",
				n, docType, strings.Join(rec.Added, ", ")))
		}
		if n := len(rec.Modified); n > 0 {
			parts = append(parts, fmt.Sprintf("updated %d section(s) in the %s document (%s)",
				n, docType, strings.Join(rec.ModifiedNames(), ", ")))
		}
		if n := len(rec.Removed); n > 0 {
			parts = append(parts, fmt.Sprintf("removed %d section(s) from the %s document (%s)",
				n, docType, strings.Join(rec.Removed, ", ")))
		}
	}
	if len(parts) == 0 {
		return "Minor updates were made to the project documentation."
	}
	summary := strings.Join(parts, "; ")
	return strings.ToUpper(summary[:1]) + summary[1:] + "."
}
