package vapi

// Assistant is a dashboard-configured assistant. Immutable once fetched.
type Assistant struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Model        *Model `json:"model,omitempty"`
	Voice        *Voice `json:"voice,omitempty"`
	FirstMessage string `json:"firstMessage,omitempty"`
	CreatedAt    string `json:"createdAt,omitempty"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
}

type Model struct {
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	SystemPrompt string  `json:"systemPrompt,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
}

type Voice struct {
	Provider string `json:"provider"`
	VoiceID  string `json:"voiceId"`
}

// Call is the vendor's call-detail payload. The structured-data summary has
// shown up in several places across vendor builds, so all candidate locations
// are modeled and probed in a fixed order.
type Call struct {
	ID             string         `json:"id"`
	Status         string         `json:"status,omitempty"`
	EndedReason    string         `json:"endedReason,omitempty"`
	Analysis       *Analysis      `json:"analysis,omitempty"`
	StructuredData map[string]any `json:"structuredData,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
}

type Analysis struct {
	Summary        string         `json:"summary,omitempty"`
	StructuredData map[string]any `json:"structuredData,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
}

// structuredDataProbes is the precedence order for locating the structured
// data object inside a call detail payload. First present object wins.
var structuredDataProbes = []func(*Call) map[string]any{
	func(c *Call) map[string]any {
		if c.Analysis != nil {
			return c.Analysis.StructuredData
		}
		return nil
	},
	func(c *Call) map[string]any { return c.StructuredData },
	func(c *Call) map[string]any { return c.Data },
	func(c *Call) map[string]any {
		if c.Analysis != nil {
			return c.Analysis.Data
		}
		return nil
	},
}

// Structured returns the first structured-data object found by the probe
// order, or nil when no candidate location holds one. A present-but-empty
// object still wins, matching how the payload is actually shipped.
func (c *Call) Structured() map[string]any {
	for _, probe := range structuredDataProbes {
		if d := probe(c); d != nil {
			return d
		}
	}
	return nil
}
