package common

const (
	KEY_RATE_LIMIT_WINDOW = "ratelimit:%s:%d"
	KEY_CHAT_SYMBOL       = "telegram:symbol:%d"
)

const (
	HEADER_API_TOKEN = "X-API-Token"

	HEADER_RATE_LIMIT_LIMIT     = "RateLimit-Limit"
	HEADER_RATE_LIMIT_REMAINING = "RateLimit-Remaining"
	HEADER_RATE_LIMIT_RESET     = "RateLimit-Reset"
)

const (
	// Key used when a caller presents no token at all.
	NO_TOKEN = "NO_TOKEN"
)

const (
	KEY_LOG_HOOK_SEND_ALERT = "send_alert"
)
