package cache

import "time"

// ============================================================================
// Key 前缀和 TTL 常量
// ============================================================================

const (
	// Key 前缀
	KeyUser = "reminder:user:"

	// TTL 常量，决定禁用用户在缓存中最长还能通过认证的时间
	TTLUser = 1 * time.Minute
)
