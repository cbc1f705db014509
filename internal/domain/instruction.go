package domain

// InstructionTemplate is a named reusable system-instruction block used when
// drafting generation prompts. Names are unique; saving an existing name
// replaces the content.
type InstructionTemplate struct {
	ID      string
	Name    string
	Content string
}
