package dto

// ProviderStatItem 提供商统计项
type ProviderStatItem struct {
	Provider        string  `json:"provider"`
	TotalResponses  int64   `json:"total_responses"`
	TotalSelections int64   `json:"total_selections"`
	ErrorCount      int64   `json:"error_count"`
	SelectionRate   float64 `json:"selection_rate"`
	ErrorRate       float64 `json:"error_rate"`
	LastUsedAt      string  `json:"last_used_at,omitempty"`
}

// DashboardStats 管理后台汇总数据
type DashboardStats struct {
	TotalUsers     int64              `json:"total_users"`
	TotalTurns     int64              `json:"total_turns"`
	TotalResponses int64              `json:"total_responses"`
	Providers      []ProviderStatItem `json:"providers"`
}
