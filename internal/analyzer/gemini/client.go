// Package gemini implements analyzer.Client against the Google Generative
// Language REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"wheelcity-backend/internal/analyzer"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.5-flash"
	defaultTimeout = 60 * time.Second

	systemPrompt = "You are an accessibility analysis AI. Analyze the provided image of a building entrance to determine if it is accessible for a lone wheelchair user.\n" +
		"Accessibility Rules:\n" +
		"1. There must be no steps or curbs between the ground and the entrance.\n" +
		"2. If there are steps or curbs, a ramp must connect the ground to the entrance.\n\n" +
		"Return ONLY valid JSON. Do not include any explanations, Markdown, or code fences.\n" +
		`JSON schema: {"accessible": boolean | null, "reason": string}` + "\n"
)

// Client calls the Gemini generateContent endpoint.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient constructs a Gemini client. model and timeout fall back to
// gemini-2.5-flash and 60s when zero.
func NewClient(apiKey, model string, timeout time.Duration, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GOOGLE_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type generatePart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"responseMimeType"`
	Temperature      float32 `json:"temperature"`
}

type generateRequest struct {
	SystemInstruction generateContent   `json:"system_instruction"`
	Contents          []generateContent `json:"contents"`
	GenerationConfig  generationConfig  `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// AnalyzeAccessibility sends the image inline and parses the JSON verdict.
func (c *Client) AnalyzeAccessibility(ctx context.Context, input analyzer.Input) (*analyzer.Verdict, error) {
	if len(input.Image) == 0 {
		return nil, fmt.Errorf("%w: empty image payload", analyzer.ErrService)
	}
	mime := input.MimeType
	if mime == "" {
		mime = "image/jpeg"
	}

	reqBody := generateRequest{
		SystemInstruction: generateContent{
			Parts: []generatePart{{Text: systemPrompt}},
		},
		Contents: []generateContent{{
			Parts: []generatePart{{
				InlineData: &inlineData{
					MimeType: mime,
					Data:     base64.StdEncoding.EncodeToString(input.Image),
				},
			}},
		}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			Temperature:      0.2,
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return nil, fmt.Errorf("%w: gemini request timeout: %v", analyzer.ErrService, err)
		}
		return nil, fmt.Errorf("%w: %v", analyzer.ErrService, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", analyzer.ErrService, err)
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: response parse: %v", analyzer.ErrInvalidResponse, err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("%w: gemini error: %s (%s)", analyzer.ErrService, parsed.Error.Message, parsed.Error.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: gemini status %d", analyzer.ErrService, resp.StatusCode)
	}
	if len(parsed.Candidates) == 0 {
		return nil, fmt.Errorf("%w: response missing candidates", analyzer.ErrInvalidResponse)
	}

	var text strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	verdict, err := parseVerdict(strings.TrimSpace(text.String()))
	if err != nil {
		return nil, err
	}
	verdict.ModelVersion = c.model
	return verdict, nil
}

var codeFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// extractJSON pulls a JSON object out of a possibly decorated model reply:
// fenced code blocks first, then the outermost brace pair.
func extractJSON(text string) string {
	if m := codeFenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	first := strings.Index(text, "{")
	last := strings.LastIndex(text, "}")
	if first != -1 && last > first {
		return strings.TrimSpace(text[first : last+1])
	}
	return ""
}

type rawVerdict struct {
	Accessible  any                `json:"accessible"`
	Reason      any                `json:"reason"`
	Features    map[string]bool    `json:"features"`
	Confidences map[string]float64 `json:"confidences"`
}

func parseVerdict(text string) (*analyzer.Verdict, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty response text", analyzer.ErrInvalidResponse)
	}

	candidate := text
	var raw rawVerdict
	if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
		candidate = extractJSON(text)
		if candidate == "" {
			return nil, fmt.Errorf("%w: no JSON object in response", analyzer.ErrInvalidResponse)
		}
		if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", analyzer.ErrInvalidResponse, err)
		}
	}

	v := &analyzer.Verdict{
		Features:    raw.Features,
		Confidences: raw.Confidences,
		Raw:         json.RawMessage(candidate),
	}

	// Anything other than a JSON boolean means undecided.
	if b, ok := raw.Accessible.(bool); ok {
		v.Accessible = &b
	}
	switch r := raw.Reason.(type) {
	case string:
		v.Reason = r
	case nil:
		v.Reason = "No reason provided."
	default:
		v.Reason = fmt.Sprint(r)
	}
	return v, nil
}

var _ analyzer.Client = (*Client)(nil)
