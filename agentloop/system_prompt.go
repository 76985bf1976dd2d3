package agentloop

import (
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/prompts"

	"github.com/OmBiradar/deepruster/toolchain"
)

const (
	initialTemplate = "Generate {{.language}} {{.file}} file for {{.task}}. " +
		"Provide the full code, without any explanations or comments:"
	correctionTemplate = "Correct the following {{.display}} code for {{.task}} provide the corrected code. " +
		"Provide the full code, without any explanations or comments:\n\n{{.code}}\n\nErrors\n\n{{.errors}}"
)

// PromptBuilder renders the initial and correction prompts.
type PromptBuilder struct {
	language string
	file     string
	initial  prompts.PromptTemplate
	correct  prompts.PromptTemplate
}

// NewPromptBuilder creates a builder for sources in language written to
// file (e.g. "rust", "main.rs").
func NewPromptBuilder(language, file string) *PromptBuilder {
	return &PromptBuilder{
		language: language,
		file:     file,
		initial:  prompts.NewPromptTemplate(initialTemplate, []string{"language", "file", "task"}),
		correct:  prompts.NewPromptTemplate(correctionTemplate, []string{"display", "task", "code", "errors"}),
	}
}

// Initial renders the first prompt for task.
func (b *PromptBuilder) Initial(task string) (string, error) {
	out, err := b.initial.Format(map[string]any{
		"language": b.language,
		"file":     b.file,
		"task":     task,
	})
	if err != nil {
		return "", fmt.Errorf("render initial prompt: %w", err)
	}
	return out, nil
}

// Correction renders a prompt that embeds the previous source and the
// compiler diagnostics.
func (b *PromptBuilder) Correction(task, code, diagnostics string) (string, error) {
	out, err := b.correct.Format(map[string]any{
		"display": displayName(b.language),
		"task":    task,
		"code":    code,
		"errors":  diagnostics,
	})
	if err != nil {
		return "", fmt.Errorf("render correction prompt: %w", err)
	}
	return out, nil
}

func displayName(language string) string {
	if language == "" {
		return language
	}
	return strings.ToUpper(language[:1]) + language[1:]
}

// BuildEnvironmentContext generates the environment block that can be sent
// as a system prompt so the model targets the host toolchain.
func BuildEnvironmentContext(d *toolchain.SystemDetails, compiler string) string {
	var sb strings.Builder
	sb.WriteString("<environment>\n")
	fmt.Fprintf(&sb, "Machine: %s\n", d.Machine)
	fmt.Fprintf(&sb, "Architecture: %s\n", d.Architecture)
	if d.OSName != "" {
		fmt.Fprintf(&sb, "Operating system: %s\n", d.OSName)
	}
	if d.OSVersion != "" {
		fmt.Fprintf(&sb, "OS version: %s\n", d.OSVersion)
	}
	fmt.Fprintf(&sb, "Compiler: %s %s\n", compiler, d.CompilerVersion)
	fmt.Fprintf(&sb, "Today's date: %s\n", time.Now().Format("2006-01-02"))
	sb.WriteString("</environment>")
	return sb.String()
}
