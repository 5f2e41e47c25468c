package live

import (
	"fmt"
	"strings"
)

// SessionConfig is the immutable configuration a session is opened with.
// Build one with NewSessionConfig before connecting; it is never mutated
// afterwards.
type SessionConfig struct {
	// Instructions is the system-level prompt defining the agent's persona
	// and behaviour, optionally extended with caller context.
	Instructions string

	// Voice selects the prebuilt voice for synthesised speech.
	Voice string

	// Tools is the set of tool declarations offered to the model.
	Tools []ToolDefinition
}

// CallerContext is what the CRM knows about the person on the line. It is
// resolved before the session opens and folded into the instructions.
type CallerContext struct {
	Name   string
	Phone  string
	Status string
	Notes  string
}

// NewSessionConfig assembles a SessionConfig from the base instruction
// template, the declared tools, and optional caller context. When caller
// context is present the instructions are extended with a delimited block
// telling the agent what is already known about the caller and to persist new
// information through the caller-record update tool. Pure data assembly; no
// side effects.
func NewSessionConfig(instructions, voice string, tools []ToolDefinition, caller *CallerContext) SessionConfig {
	if caller != nil {
		instructions = instructions + "\n" + callerContextBlock(caller)
	}
	return SessionConfig{
		Instructions: instructions,
		Voice:        voice,
		Tools:        tools,
	}
}

func callerContextBlock(c *CallerContext) string {
	var b strings.Builder
	b.WriteString("--- CALLER CONTEXT ---\n")
	b.WriteString("You are speaking with a known contact. Reference what you already know\n")
	b.WriteString("about them naturally, and record anything new you learn during the call\n")
	b.WriteString("with the update_lead tool (use their phone number below).\n")
	fmt.Fprintf(&b, "Name: %s\n", c.Name)
	fmt.Fprintf(&b, "Phone: %s\n", c.Phone)
	if c.Status != "" {
		fmt.Fprintf(&b, "Status: %s\n", c.Status)
	}
	if c.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", c.Notes)
	}
	b.WriteString("--- END CALLER CONTEXT ---")
	return b.String()
}
