package prompts

import (
	"bytes"
	"fmt"
	"text/template"

	"comment-extractor/internal/domain/entity"
)

// Chunked is embedded by every prompt that carries one outline chunk.
type Chunked struct {
	Outline    string
	ChunkIndex int
	ChunkCount int
}

type DetectData struct {
	Chunked
	URL string
}

type SelectorsData struct {
	Chunked
	Domain      string
	Known       entity.SelectorMap
	Failed      entity.SelectorMap
	Diagnostics []string
}

type ExtractData struct {
	Chunked
	Remaining int
}

type ProgressiveData struct {
	Outline       string
	Iteration     int
	MaxIterations int
	Collected     int
	Target        int
	MaxExpand     int
}

var (
	detectTmpl      = template.Must(template.New("detect").Parse(DetectPrompt))
	selectorsTmpl   = template.Must(template.New("selectors").Parse(SelectorsPrompt))
	extractTmpl     = template.Must(template.New("extract").Parse(ExtractPrompt))
	progressiveTmpl = template.Must(template.New("progressive").Parse(ProgressivePrompt))
)

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

func Detect(data DetectData) (string, error) {
	return render(detectTmpl, data)
}

func Selectors(data SelectorsData) (string, error) {
	return render(selectorsTmpl, data)
}

func Extract(data ExtractData) (string, error) {
	return render(extractTmpl, data)
}

func Progressive(data ProgressiveData) (string, error) {
	return render(progressiveTmpl, data)
}

// Overhead renders a prompt with an empty outline. Its token estimate is
// subtracted from the chunk budget.
func Overhead(build func(outline string) (string, error)) string {
	s, err := build("")
	if err != nil {
		return ""
	}
	return s
}
