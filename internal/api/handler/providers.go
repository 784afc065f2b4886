package handler

import (
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/chathub_go_server/config"
	"github.com/qs3c/chathub_go_server/internal/api/middleware"
	"github.com/qs3c/chathub_go_server/internal/pkg/response"
	"github.com/qs3c/chathub_go_server/internal/provider"
)

// ProviderItem 提供商列表项，available 表示当前用户有可用密钥
type ProviderItem struct {
	Name          string `json:"name"`
	DisplayName   string `json:"display_name"`
	Kind          string `json:"kind"`
	DefaultModel  string `json:"default_model"`
	RequiredLevel string `json:"required_level,omitempty"`
	Description   string `json:"description,omitempty"`
	Available     bool   `json:"available"`
}

type ProvidersHandler struct {
	registry    *provider.Registry
	keyResolver *provider.KeyResolver
	cfg         *config.Config
}

func NewProvidersHandler(registry *provider.Registry, keyResolver *provider.KeyResolver, cfg *config.Config) *ProvidersHandler {
	return &ProvidersHandler{
		registry:    registry,
		keyResolver: keyResolver,
		cfg:         cfg,
	}
}

// List 提供商列表
// GET /api/v1/providers
func (h *ProvidersHandler) List(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	items := make([]ProviderItem, 0, len(h.cfg.Providers))
	for _, pc := range h.cfg.Providers {
		items = append(items, ProviderItem{
			Name:          pc.Name,
			DisplayName:   pc.DisplayName,
			Kind:          pc.Kind,
			DefaultModel:  pc.DefaultModel,
			RequiredLevel: pc.RequiredLevel,
			Description:   pc.Description,
			Available:     h.keyResolver.Available(userID, pc.Name),
		})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Name < items[j].Name
	})

	response.Success(c, items)
}
