package unifiedllm

import (
	"strings"
	"time"
)

// Role identifies who produced a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a text conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SystemMessage creates a system Message.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// UserMessage creates a user Message.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// AssistantMessage creates an assistant Message.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// Request is the input to Complete.
type Request struct {
	Model       string    `json:"model,omitempty"`
	Messages    []Message `json:"messages"`
	Provider    string    `json:"provider,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
}

// SplitPrompt flattens the conversation for backends that take a single
// prompt plus an optional system prompt. Assistant turns are kept as
// context.
func (r Request) SplitPrompt() (system, prompt string) {
	var sys, user []string
	for _, msg := range r.Messages {
		switch msg.Role {
		case RoleSystem:
			sys = append(sys, msg.Content)
		case RoleUser:
			user = append(user, msg.Content)
		case RoleAssistant:
			if msg.Content != "" {
				user = append(user, "[Assistant]: "+msg.Content)
			}
		}
	}
	return strings.Join(sys, "\n"), strings.Join(user, "\n")
}

// PromptChars is the total size of the request text.
func (r Request) PromptChars() int {
	n := 0
	for _, msg := range r.Messages {
		n += len(msg.Content)
	}
	return n
}

// FinishReason describes why generation stopped.
type FinishReason struct {
	Reason string `json:"reason"` // "stop", "length", "error", "other"
	Raw    string `json:"raw,omitempty"`
}

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add returns a new Usage that is the sum of u and other.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
		TotalTokens:  u.TotalTokens + other.TotalTokens,
	}
}

// Response is the output of Complete.
type Response struct {
	ID           string        `json:"id"`
	Model        string        `json:"model"`
	Provider     string        `json:"provider"`
	Message      Message       `json:"message"`
	FinishReason FinishReason  `json:"finish_reason"`
	Usage        Usage         `json:"usage"`
	Latency      time.Duration `json:"latency,omitempty"`
}

// Text returns the generated text.
func (r Response) Text() string {
	return r.Message.Content
}

// GenerateResult is returned by Generate.
type GenerateResult struct {
	Text     string   `json:"text"`
	Response Response `json:"response"`
	Attempts int      `json:"attempts"`
}

// estimateTokens gives a rough token count for backends that do not
// report usage.
func estimateTokens(chars int) int {
	return chars / 4
}
