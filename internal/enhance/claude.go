// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enhance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"
	"unicode/utf8"
)

// maxPromptContent caps the content runes sent to the model.
const maxPromptContent = 4000

var enhancePromptTmpl = template.Must(template.New("enhance").Parse(`You are an editor for a Korean government policy digest. Read the policy item below and answer in Korean.

Return a JSON object with exactly these fields:
- summary: two or three sentences a citizen can understand
- keywords: three to six short topical keywords
- category: one of general, employment, housing, education, health, childcare, finance, culture, startup, welfare
- target: who is eligible, in one sentence ("" if not stated)
- applicationMethod: how to apply, in one sentence ("" if not stated)

Do not include any text outside the JSON object.

Title: {{.Title}}

Content:
{{.Content}}
`))

// claudeAPIURL is the Messages API endpoint. Package-level var for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

// ClaudeEnhancer calls the Claude Messages API.
type ClaudeEnhancer struct {
	APIKey string
	Model  string
	Client *http.Client
}

var _ Enhancer = (*ClaudeEnhancer)(nil)

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Enhance asks the model for a summary, keywords and eligibility notes.
func (c *ClaudeEnhancer) Enhance(ctx context.Context, title, content string) (Enhancement, error) {
	if c.APIKey == "" {
		return Enhancement{}, errors.New("no API key configured")
	}
	prompt, err := renderPrompt(title, content)
	if err != nil {
		return Enhancement{}, fmt.Errorf("rendering prompt: %w", err)
	}

	bodyBytes, err := json.Marshal(claudeRequest{
		Model:     c.Model,
		MaxTokens: 1024,
		Messages:  []claudeMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return Enhancement{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claudeAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return Enhancement{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Enhancement{}, fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Enhancement{}, fmt.Errorf("Claude API returned %d: %s", resp.StatusCode, string(body))
	}

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return Enhancement{}, fmt.Errorf("decoding Claude response: %w", err)
	}
	for _, block := range cResp.Content {
		if block.Type != "text" {
			continue
		}
		var e Enhancement
		if err := json.Unmarshal([]byte(jsonObject(block.Text)), &e); err != nil {
			return Enhancement{}, fmt.Errorf("parsing enhancement JSON: %w", err)
		}
		return e, nil
	}
	return Enhancement{}, errors.New("no text content in Claude API response")
}

func renderPrompt(title, content string) (string, error) {
	if utf8.RuneCountInString(content) > maxPromptContent {
		content = string([]rune(content)[:maxPromptContent])
	}
	var buf bytes.Buffer
	err := enhancePromptTmpl.Execute(&buf, struct{ Title, Content string }{title, content})
	return buf.String(), err
}

// jsonObject trims anything around the outermost JSON object, such as a
// Markdown code fence.
func jsonObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return text
	}
	return text[start : end+1]
}
