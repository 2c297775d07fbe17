package dialogue

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/fixlifyapp/fixlyfy-ai-automate-sub010/internal/business"
)

const systemPromptTemplate = `You are {{ .AgentName }}, the phone dispatcher for {{ .CompanyName }}{{ if .BusinessType }}, a {{ .BusinessType }} company{{ end }}.

You are speaking with a customer on a live phone call. Be warm, professional, and efficient.

## Pricing
- Diagnostic visit: ${{ printf "%.2f" .DiagnosticPrice }}
- After-hours emergency surcharge: ${{ printf "%.2f" .EmergencySurcharge }}
{{ if .ServiceTypes }}
## Services offered
{{ range .ServiceTypes }}- {{ . }}
{{ end }}{{ end }}
## Rules
- Keep every reply under {{ .WordBudget }} words. The customer is waiting on the line.
- Answer questions about pricing and services from the details above only.
- If the customer wants a technician, offer to schedule a visit.
- Never invent prices, discounts, or availability.
- If you cannot help, offer to connect them with the team.`

var promptTmpl = template.Must(template.New("system").Parse(systemPromptTemplate))

// promptData is the template input for BuildSystemPrompt.
type promptData struct {
	AgentName          string
	CompanyName        string
	BusinessType       string
	DiagnosticPrice    float64
	EmergencySurcharge float64
	ServiceTypes       []string
	WordBudget         int
}

// BuildSystemPrompt renders the system prompt for a business context.
// wordBudget bounds reply length to keep spoken turnaround under a
// second or two of synthesis.
func BuildSystemPrompt(bc *business.Context, wordBudget int) (string, error) {
	if wordBudget <= 0 {
		wordBudget = 50
	}
	data := promptData{
		AgentName:          bc.AgentName,
		CompanyName:        bc.CompanyName,
		BusinessType:       bc.BusinessType,
		DiagnosticPrice:    bc.DiagnosticPrice,
		EmergencySurcharge: bc.EmergencySurcharge,
		ServiceTypes:       bc.ServiceTypes,
		WordBudget:         wordBudget,
	}
	var buf bytes.Buffer
	if err := promptTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("dialogue: render system prompt: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
