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

// OpenAIClient OpenAI 兼容协议的聊天客户端，
// openai / deepseek / openrouter 都走这套接口，仅 BaseURL 不同
type OpenAIClient struct {
	name         string
	baseURL      string
	defaultModel string
	httpClient   *http.Client
}

func NewOpenAIClient(name, baseURL, defaultModel string) *OpenAIClient {
	return &OpenAIClient{
		name:         name,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		defaultModel: defaultModel,
		httpClient:   &http.Client{},
	}
}

func (c *OpenAIClient) Name() string {
	return c.name
}

type openaiChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
}

type openaiChatResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
	Model string `json:"model"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *OpenAIClient) Invoke(ctx context.Context, req *Request) (*Result, error) {
	if req.APIKey == "" {
		return nil, ErrNotConfigured
	}

	modelName := req.ModelName
	if modelName == "" {
		modelName = c.defaultModel
	}

	messages := make([]ChatMessage, 0, len(req.History)+1)
	messages = append(messages, req.History...)
	messages = append(messages, ChatMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(openaiChatRequest{
		Model:    modelName,
		Messages: messages,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var chatResp openaiChatResponse
	if err := json.Unmarshal(data, &chatResp); err != nil {
		return nil, &VendorError{Provider: c.name, StatusCode: resp.StatusCode, Message: "响应解析失败"}
	}

	if resp.StatusCode != http.StatusOK {
		msg := ""
		if chatResp.Error != nil {
			msg = chatResp.Error.Message
		}
		return nil, &VendorError{Provider: c.name, StatusCode: resp.StatusCode, Message: msg}
	}

	if len(chatResp.Choices) == 0 {
		return nil, &VendorError{Provider: c.name, StatusCode: resp.StatusCode, Message: "返回内容为空"}
	}

	return &Result{
		Content:   chatResp.Choices[0].Message.Content,
		ModelName: chatResp.Model,
	}, nil
}
