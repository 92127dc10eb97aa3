package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// LLMOptions configures an OpenAI-compatible chat completions summarizer.
type LLMOptions struct {
	BaseURL        string
	APIKey         string
	Model          string
	Timeout        time.Duration
	MaxInputTokens int
}

// LLMSummarizer asks a chat completions endpoint for a summary. Input is cut to
// MaxInputTokens cl100k_base tokens before sending.
type LLMSummarizer struct {
	opts     LLMOptions
	client   *http.Client
	encoding *tiktoken.Tiktoken
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// NewLLMSummarizer validates opts and loads the tokenizer.
func NewLLMSummarizer(opts LLMOptions) (*LLMSummarizer, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.openai.com/v1"
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("summarizer model is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxInputTokens <= 0 {
		opts.MaxInputTokens = 800
	}
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}
	return &LLMSummarizer{
		opts:     opts,
		client:   &http.Client{Timeout: opts.Timeout},
		encoding: enc,
	}, nil
}

// TruncateTokens cuts text to at most n tokens.
func (s *LLMSummarizer) TruncateTokens(text string, n int) string {
	tokens := s.encoding.Encode(text, nil, nil)
	if len(tokens) <= n {
		return text
	}
	return s.encoding.Decode(tokens[:n])
}

// CountTokens returns the number of tokens in text.
func (s *LLMSummarizer) CountTokens(text string) int {
	return len(s.encoding.Encode(text, nil, nil))
}

// Summarize requests a summary of roughly the given number of sentences.
func (s *LLMSummarizer) Summarize(ctx context.Context, text string, sentences int) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	if sentences <= 0 {
		sentences = 1
	}
	body, err := json.Marshal(chatRequest{
		Model: s.opts.Model,
		Messages: []chatMessage{
			{Role: "system", Content: fmt.Sprintf("Summarize the user's document in at most %d sentences. Reply with the summary only.", sentences)},
			{Role: "user", Content: s.TruncateTokens(text, s.opts.MaxInputTokens)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(s.opts.BaseURL, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.opts.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("summarizer request failed: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("summarizer API returned status %d: %s", resp.StatusCode, string(data))
	}
	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
