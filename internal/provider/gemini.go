package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// GeminiClient Google Gemini 客户端（generateContent REST 接口）
type GeminiClient struct {
	name         string
	baseURL      string
	defaultModel string
	httpClient   *http.Client
}

func NewGeminiClient(name, baseURL, defaultModel string) *GeminiClient {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	return &GeminiClient{
		name:         name,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		defaultModel: defaultModel,
		httpClient:   &http.Client{},
	}
}

func (c *GeminiClient) Name() string {
	return c.name
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"` // user 或 model
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *GeminiClient) Invoke(ctx context.Context, req *Request) (*Result, error) {
	if req.APIKey == "" {
		return nil, ErrNotConfigured
	}

	modelName := req.ModelName
	if modelName == "" {
		modelName = c.defaultModel
	}

	// Gemini 的历史角色是 user/model，不是 user/assistant
	contents := make([]geminiContent, 0, len(req.History)+1)
	for _, m := range req.History {
		role := m.Role
		if role == "assistant" {
			role = "model"
		}
		contents = append(contents, geminiContent{Role: role, Parts: []geminiPart{{Text: m.Content}}})
	}
	contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}})

	body, err := json.Marshal(geminiRequest{Contents: contents})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, modelName, req.APIKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(data, &geminiResp); err != nil {
		return nil, &VendorError{Provider: c.name, StatusCode: resp.StatusCode, Message: "响应解析失败"}
	}

	if resp.StatusCode != http.StatusOK {
		msg := ""
		if geminiResp.Error != nil {
			msg = geminiResp.Error.Message
		}
		return nil, &VendorError{Provider: c.name, StatusCode: resp.StatusCode, Message: msg}
	}

	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return nil, &VendorError{Provider: c.name, StatusCode: resp.StatusCode, Message: "返回内容为空"}
	}

	return &Result{
		Content:   geminiResp.Candidates[0].Content.Parts[0].Text,
		ModelName: modelName,
	}, nil
}
