package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrProviderNotFound  = errors.New("provider not found")
	ErrNoDefaultProvider = errors.New("no default provider configured")
	ErrEmptyResponse     = errors.New("provider returned an empty response")
	ErrRateLimited       = errors.New("provider rate limit exceeded")
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Generate performs a completion request
	Generate(ctx context.Context, req *Request) (*Response, error)
}

// Request represents an LLM request
type Request struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	StopSeqs    []string
	System      string // System prompt (some providers handle this separately)

	// JSON asks for a JSON document as the reply. Providers with a native
	// JSON mode use it; the rest get an instruction in the system prompt.
	JSON bool
}

// Message represents a chat message
type Message struct {
	Role    Role
	Content string
}

// Role represents the role of a message sender
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Response represents an LLM response
type Response struct {
	Content      string
	FinishReason string
	Usage        Usage
}

// Usage tracks token usage
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// APIError is a non-2xx reply from a provider API
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}

// jsonInstruction is appended to the system prompt for providers without a
// native JSON mode
const jsonInstruction = "Respond with a single valid JSON document and nothing else. Do not wrap it in markdown code fences."

// systemPrompt returns the system prompt for req, collecting a system
// message from the message list when System is empty
func systemPrompt(req *Request, nativeJSON bool) string {
	system := req.System
	if system == "" {
		for _, m := range req.Messages {
			if m.Role == RoleSystem {
				system = m.Content
				break
			}
		}
	}
	if req.JSON && !nativeJSON {
		if system != "" {
			system += "\n\n"
		}
		system += jsonInstruction
	}
	return system
}

// Prompt is a single-turn request
type Prompt struct {
	System      string
	User        string
	JSON        bool
	Temperature float64
}

// Ask sends a single-turn prompt and returns the trimmed reply text
func Ask(ctx context.Context, p Provider, pr Prompt) (string, error) {
	resp, err := p.Generate(ctx, &Request{
		System:      pr.System,
		Messages:    []Message{{Role: RoleUser, Content: pr.User}},
		Temperature: pr.Temperature,
		JSON:        pr.JSON,
	})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", fmt.Errorf("%s: %w", p.Name(), ErrEmptyResponse)
	}
	return text, nil
}

// StripFences removes a markdown code fence wrapped around a reply
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:] // drop language tag
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// Registry manages LLM providers
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	defaultP  string
}

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the registry
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

// SetDefault sets the default provider
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name != "auto" {
		if _, ok := r.providers[name]; !ok {
			return fmt.Errorf("%w: %s", ErrProviderNotFound, name)
		}
	}
	r.defaultP = name
	return nil
}

// Get retrieves a provider by name
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}
	return p, nil
}

// Default returns the default provider.
// If default is "auto" or unset, the first provider by name is returned.
func (r *Registry) Default() (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.defaultP != "" && r.defaultP != "auto" {
		if p, ok := r.providers[r.defaultP]; ok {
			return p, nil
		}
	}

	names := r.sortedNames()
	if len(names) == 0 {
		return nil, ErrNoDefaultProvider
	}
	return r.providers[names[0]], nil
}

// List returns all registered provider names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNames()
}

// DefaultName returns the name of the default provider
func (r *Registry) DefaultName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultP
}

// Close releases resources held by registered providers
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, p := range r.providers {
		if c, ok := p.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) sortedNames() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
