package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrCompletionFailed marks any failure of the provider call, before or
// during the stream.
var ErrCompletionFailed = errors.New("completion failed")

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// Fragment is one element of a completion stream. Exactly one terminal
// fragment (Done or Err) ends every stream.
type Fragment struct {
	Text string
	Done bool
	Err  error
}

type OpenAICompatibleClient struct {
	httpClient *http.Client
	cfg        ChatConfig
}

func NewOpenAICompatibleClient(cfg ChatConfig) *OpenAICompatibleClient {
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1000
	}
	return &OpenAICompatibleClient{
		// No client timeout: the caller's context bounds the whole stream.
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: 60 * time.Second,
				IdleConnTimeout:       90 * time.Second,
			},
		},
		cfg: cfg,
	}
}

func (c *OpenAICompatibleClient) Model() string {
	return c.cfg.Model
}

// Stream sends instruction as the system turn followed by turns and returns
// the incremental answer. Transport errors, provider errors and a stream that
// ends without its completion marker all arrive as a single Err fragment.
func (c *OpenAICompatibleClient) Stream(ctx context.Context, instruction string, turns []ChatMessage) <-chan Fragment {
	out := make(chan Fragment, 16)
	go func() {
		defer close(out)
		if err := c.stream(ctx, instruction, turns, out); err != nil {
			send(ctx, out, Fragment{Err: fmt.Errorf("%w: %w", ErrCompletionFailed, err)})
			return
		}
		send(ctx, out, Fragment{Done: true})
	}()
	return out
}

func (c *OpenAICompatibleClient) stream(ctx context.Context, instruction string, turns []ChatMessage, out chan<- Fragment) error {
	messages := make([]ChatMessage, 0, len(turns)+1)
	messages = append(messages, ChatMessage{Role: "system", Content: instruction})
	messages = append(messages, turns...)

	reqBody := map[string]interface{}{
		"model":       c.cfg.Model,
		"messages":    messages,
		"stream":      true,
		"temperature": c.cfg.Temperature,
		"max_tokens":  c.cfg.MaxTokens,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal llm stream request failed: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("build llm stream request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("llm stream request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("llm stream status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			return nil
		}

		var chunk struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
			Error *struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		if chunk.Error != nil {
			return fmt.Errorf("llm stream error: %s", chunk.Error.Message)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		text := chunk.Choices[0].Delta.Content
		if text == "" {
			continue
		}
		if !send(ctx, out, Fragment{Text: text}) {
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan llm stream failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.New("llm stream ended before completion")
}

func send(ctx context.Context, out chan<- Fragment, frag Fragment) bool {
	select {
	case out <- frag:
		return true
	case <-ctx.Done():
		return false
	}
}

// Collect drains a stream, forwarding each text fragment to onChunk, and
// returns the concatenated answer or the terminal failure. A truncated stream
// never yields partial text as if it were final.
func Collect(stream <-chan Fragment, onChunk func(string) error) (string, error) {
	var full strings.Builder
	for frag := range stream {
		if frag.Err != nil {
			return "", frag.Err
		}
		if frag.Done {
			return full.String(), nil
		}
		full.WriteString(frag.Text)
		if onChunk != nil {
			if err := onChunk(frag.Text); err != nil {
				return "", fmt.Errorf("%w: deliver fragment: %w", ErrCompletionFailed, err)
			}
		}
	}
	return "", fmt.Errorf("%w: stream closed without completion", ErrCompletionFailed)
}
