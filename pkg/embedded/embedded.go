package embedded

import (
	_ "embed"
)

// Embed all prompt data files
//
//go:embed data/prompts/system_prompt.txt
var SystemPromptTxt []byte

//go:embed data/prompts/instruction.tmpl
var InstructionTmpl []byte
