package prompts

import (
	_ "embed"
)

//go:embed system.txt
var SystemPrompt string

//go:embed detect.txt
var DetectPrompt string

//go:embed selectors.txt
var SelectorsPrompt string

//go:embed extract.txt
var ExtractPrompt string

//go:embed progressive.txt
var ProgressivePrompt string
