package prompt

import (
	"strings"

	"github.com/Conceptual-Machines/magda-midigen/pkg/embedded"
)

type Loader struct{}

func NewPromptLoader() *Loader {
	return &Loader{}
}

// GetSystemPrompt loads the main system prompt
func (l *Loader) GetSystemPrompt() string {
	return strings.TrimSpace(string(embedded.SystemPromptTxt))
}

// GetInstructionTemplate loads the per-song user instruction template
func (l *Loader) GetInstructionTemplate() string {
	return strings.TrimSpace(string(embedded.InstructionTmpl))
}
