package classifier

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are an incident triage classifier for an IT service
management platform. Given a scrubbed short description, description, and
any enrichment context, respond with a single JSON object and nothing else:

{
  "category": one of "access", "infrastructure", "application", "network", "data", "unknown",
  "subcategory": a short free-text refinement of category,
  "priority": one of "1", "2", "3", "4", "5" (1 is highest urgency),
  "assignment_group": the team that should own this incident if not auto-resolved,
  "resolution_notes": a short free-text hypothesis or summary,
  "action": one of "route", "auto_heal", "escalate",
  "tool": required when action is "auto_heal", the name of the remediation tool to run,
  "target": required when action is "auto_heal", the host instance or account the tool acts on,
  "confidence": a float between 0 and 1
}

Decision rules for "action":
- If a related KB article plausibly resolves the incident through one of the
  known remediation tools, choose "auto_heal" and set "tool" and "target".
- Else, if priority is "1" or "2" and no KB article matches, choose "escalate".
- Otherwise choose "route".

Do not wrap the JSON in prose. Do not omit required fields.`

func buildUserPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Short description: %s\n", req.ShortDescription)
	fmt.Fprintf(&b, "Description: %s\n", req.Description)
	if len(req.Enrichment.KBArticles) > 0 {
		fmt.Fprintf(&b, "Related KB articles: %s\n", strings.Join(req.Enrichment.KBArticles, "; "))
	}
	if req.Enrichment.UserInfo != "" {
		fmt.Fprintf(&b, "Caller info: %s\n", req.Enrichment.UserInfo)
	}
	if req.Enrichment.CIInfo != "" {
		fmt.Fprintf(&b, "Affected CI: %s\n", req.Enrichment.CIInfo)
	}
	return b.String()
}
