package dto

// SaveAPIKeyRequest 保存个人密钥请求
type SaveAPIKeyRequest struct {
	Provider string `json:"provider" binding:"required,max=50"`
	KeyValue string `json:"key_value" binding:"required,min=8,max=255"`
	Label    string `json:"label,omitempty" binding:"omitempty,max=100"`
}

// APIKeyItem 个人密钥列表项，密钥只回显尾部
type APIKeyItem struct {
	ID        int64  `json:"id"`
	Provider  string `json:"provider"`
	KeyHint   string `json:"key_hint"`
	Label     string `json:"label,omitempty"`
	CreatedAt string `json:"created_at"`
}
