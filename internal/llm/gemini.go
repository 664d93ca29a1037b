package llm

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// GeminiProvider implements the Provider interface for Google's Gemini API
type GeminiProvider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// GeminiConfig holds configuration for the Gemini provider
type GeminiConfig struct {
	APIKey  string
	BaseURL string // default: https://generativelanguage.googleapis.com
	Model   string // default: gemini-2.5-flash
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(cfg GeminiConfig) *GeminiProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}

	return &GeminiProvider{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: newLLMHTTPClient(),
	}
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature      float64  `json:"temperature,omitempty"`
	MaxOutputTokens  int      `json:"maxOutputTokens,omitempty"`
	StopSequences    []string `json:"stopSequences,omitempty"`
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

func (p *GeminiProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}
	endpoint := p.baseURL + "/v1beta/models/" + url.PathEscape(model) + ":generateContent"

	var geminiResp geminiResponse
	err := postJSON(ctx, p.httpClient, p.Name(), endpoint, map[string]string{
		"x-goog-api-key": p.apiKey,
	}, p.buildRequest(req), &geminiResp)
	if err != nil {
		return nil, err
	}
	return p.parseResponse(&geminiResp), nil
}

func (p *GeminiProvider) buildRequest(req *Request) *geminiRequest {
	contents := make([]geminiContent, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := "user"
		switch m.Role {
		case RoleSystem:
			continue
		case RoleAssistant:
			role = "model"
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: m.Content}},
		})
	}

	geminiReq := &geminiRequest{Contents: contents}
	if system := systemPrompt(req, true); system != "" {
		geminiReq.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}

	gen := &geminiGenerationConfig{
		Temperature:     req.Temperature,
		MaxOutputTokens: req.MaxTokens,
		StopSequences:   req.StopSeqs,
	}
	if req.JSON {
		gen.ResponseMimeType = "application/json"
	}
	if gen.Temperature > 0 || gen.MaxOutputTokens > 0 || len(gen.StopSequences) > 0 || gen.ResponseMimeType != "" {
		geminiReq.GenerationConfig = gen
	}
	return geminiReq
}

func (p *GeminiProvider) parseResponse(resp *geminiResponse) *Response {
	out := &Response{
		Usage: Usage{
			InputTokens:  resp.UsageMetadata.PromptTokenCount,
			OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
		},
	}
	if len(resp.Candidates) == 0 {
		return out
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	out.Content = sb.String()
	out.FinishReason = resp.Candidates[0].FinishReason
	return out
}
