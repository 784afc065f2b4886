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

// ImageRouterClient 图片生成客户端，返回媒体 URL 而非文本
type ImageRouterClient struct {
	name         string
	baseURL      string
	defaultModel string
	httpClient   *http.Client
}

func NewImageRouterClient(name, baseURL, defaultModel string) *ImageRouterClient {
	return &ImageRouterClient{
		name:         name,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		defaultModel: defaultModel,
		httpClient:   &http.Client{},
	}
}

func (c *ImageRouterClient) Name() string {
	return c.name
}

type imageGenRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type imageGenResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *ImageRouterClient) Invoke(ctx context.Context, req *Request) (*Result, error) {
	if req.APIKey == "" {
		return nil, ErrNotConfigured
	}

	modelName := req.ModelName
	if modelName == "" {
		modelName = c.defaultModel
	}

	body, err := json.Marshal(imageGenRequest{
		Model:  modelName,
		Prompt: req.Prompt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/images/generations", bytes.NewReader(body))
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

	var genResp imageGenResponse
	if err := json.Unmarshal(data, &genResp); err != nil {
		return nil, &VendorError{Provider: c.name, StatusCode: resp.StatusCode, Message: "响应解析失败"}
	}

	if resp.StatusCode != http.StatusOK {
		msg := ""
		if genResp.Error != nil {
			msg = genResp.Error.Message
		}
		return nil, &VendorError{Provider: c.name, StatusCode: resp.StatusCode, Message: msg}
	}

	if len(genResp.Data) == 0 || genResp.Data[0].URL == "" {
		return nil, &VendorError{Provider: c.name, StatusCode: resp.StatusCode, Message: "未返回图片"}
	}

	return &Result{
		MediaURL:  genResp.Data[0].URL,
		ModelName: modelName,
	}, nil
}
