package proxy

// Config is the proxy server configuration.
type Config struct {
	// Address to listen on (e.g., ":8080")
	ListenAddr string

	// RateLimit bounds chat requests per client IP.
	RateLimit RateLimitConfig
}

// RateLimitConfig is a token bucket per client IP. RPS <= 0 disables it.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}
