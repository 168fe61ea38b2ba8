package prompt

// Slot names used by prompt templates.
const (
	SlotSystemPrompt      = "system_prompt"
	SlotInstructionPrompt = "instruction_prompt"
	SlotContext           = "context"
	SlotQuery             = "query"
)

// Builder assembles prompts in two stages: the outer prompt template takes
// the system and instruction prompts, and the result takes the context and
// query.
type Builder struct {
	template     string
	systemPrompt string
}

// NewBuilder creates a Builder for the given outer template and system prompt.
func NewBuilder(promptTemplate, systemPrompt string) *Builder {
	return &Builder{template: promptTemplate, systemPrompt: systemPrompt}
}

// Stage fills the outer template with an instruction prompt. Placeholders
// other than the two slots are kept for Fill.
func (b *Builder) Stage(instructionPrompt string) (Stage, error) {
	s, err := FormatPartial(b.template, Fields{
		SlotSystemPrompt:      b.systemPrompt,
		SlotInstructionPrompt: instructionPrompt,
	})
	if err != nil {
		return "", err
	}
	return Stage(s), nil
}

// Stage is a prompt template whose system and instruction slots are filled.
type Stage string

// Fill substitutes context and query. A stage that does not reference query
// ignores it.
func (s Stage) Fill(context, query string) (string, error) {
	return Format(string(s), Fields{
		SlotContext: context,
		SlotQuery:   query,
	})
}
