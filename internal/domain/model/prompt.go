package model

// PromptRequest is one generation request built from teacher-entered notes.
// Activities holds pre-extracted plain text only; document extraction happens
// upstream and its failures never reach this core.
type PromptRequest struct {
	Activities []string
	Length     int // desired output length in characters
}

// PromptResult is the rendered prompt (and, when an AI adapter is configured,
// the model completion) together with the remaining quota after consumption.
type PromptResult struct {
	Prompt     string
	Completion string
	TokenCount int
	Remaining  int
}
