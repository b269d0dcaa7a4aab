package trader

import (
	"tradingfloor/internal/agents"
)

// Persona describes one trader: who they are, how they invest, and which
// model makes their decisions.
type Persona struct {
	Name     string
	Lastname string
	Strategy string
	Binding  agents.ModelBinding
}

// FullName returns the trader's display name.
func (p Persona) FullName() string {
	return p.Name + " " + p.Lastname
}

const riskRules = `

Risk management rules you always follow:
- Keep position sizes reasonable relative to the account.
- Do not concentrate the whole account in one symbol.
- Prefer no trade over a forced trade when nothing fits your strategy.`

// Personas returns the four floor traders. When manyModels is false every
// trader is bound to the same OpenAI model, which keeps a single-key setup
// working; with manyModels each persona gets its own provider.
func Personas(manyModels bool) []Persona {
	personas := []Persona{
		{
			Name:     "Warren",
			Lastname: "Patience",
			Strategy: "You are a value investor in the style of Warren Buffett. " +
				"You buy durable businesses at sensible prices and hold them for a long time. " +
				"You are patient and only trade when the odds are clearly in your favor." + riskRules,
			Binding: agents.ModelBinding{Provider: agents.ProviderOpenAI, Model: "gpt-4.1-mini"},
		},
		{
			Name:     "George",
			Lastname: "Bold",
			Strategy: "You are a bold macro trader in the style of George Soros. " +
				"You look for mispricings driven by crowd psychology and macro shifts, " +
				"and you are willing to make aggressive contrarian bets when conviction is high." + riskRules,
			Binding: agents.ModelBinding{Provider: agents.ProviderDeepSeek, Model: "deepseek-chat"},
		},
		{
			Name:     "Ray",
			Lastname: "Systematic",
			Strategy: "You are a systematic trader in the style of Ray Dalio. " +
				"You follow rules grounded in diversification and risk parity, " +
				"rebalancing methodically rather than chasing stories." + riskRules,
			Binding: agents.ModelBinding{Provider: agents.ProviderGemini, Model: "gemini-2.5-flash"},
		},
		{
			Name:     "Cathie",
			Lastname: "Crypto",
			Strategy: "You are a growth investor in the style of Cathie Wood. " +
				"You hunt for disruptive innovation and are comfortable with volatility, " +
				"concentrating in high-conviction themes with asymmetric upside." + riskRules,
			Binding: agents.ModelBinding{Provider: agents.ProviderGrok, Model: "grok-3-mini"},
		},
	}

	if !manyModels {
		for i := range personas {
			personas[i].Binding = agents.ModelBinding{Provider: agents.ProviderOpenAI, Model: "gpt-4.1-mini"}
		}
	}
	return personas
}
