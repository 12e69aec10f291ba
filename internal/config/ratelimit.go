package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// RateLimitConfig drives the Redis token bucket.  Auth endpoints get a
// tighter bucket than the rest of the API.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables for the general API.
func LoadRateLimitConfig() RateLimitConfig {
	return rateLimit("RATE_LIMIT", RateLimitConfig{
		Capacity:       60,
		RefillTokens:   1,
		RefillInterval: time.Second,
		KeyStrategy:    "ip_user_route",
		Prefix:         "rl",
	})
}

// LoadAuthRateLimitConfig reads AUTH_RATE_LIMIT_* variables for login,
// registration and refresh, keyed per client IP.
func LoadAuthRateLimitConfig() RateLimitConfig {
	return rateLimit("AUTH_RATE_LIMIT", RateLimitConfig{
		Capacity:       10,
		RefillTokens:   1,
		RefillInterval: 6 * time.Second,
		KeyStrategy:    "ip_route",
		Prefix:         "rl-auth",
	})
}

func rateLimit(prefix string, def RateLimitConfig) RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:        envBool(prefix+"_ENABLED", true),
		Capacity:       envInt(prefix+"_CAPACITY", def.Capacity),
		RefillTokens:   envInt(prefix+"_REFILL_TOKENS", def.RefillTokens),
		RefillInterval: envDur(prefix+"_REFILL_INTERVAL", def.RefillInterval),
		TTL:            envDur(prefix+"_TTL", 10*time.Minute),
		KeyStrategy:    getenv(prefix+"_KEY_STRATEGY", def.KeyStrategy),
		Prefix:         getenv(prefix+"_PREFIX", def.Prefix),
		Debug:          envBool(prefix+"_DEBUG", false),
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.RefillTokens < 1 {
		cfg.RefillTokens = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	// keep state alive for at least a few refill periods
	if minTTL := 5 * cfg.RefillInterval; cfg.TTL < minTTL {
		cfg.TTL = minTTL
	}
	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(k string, d bool) bool {
	switch strings.ToLower(os.Getenv(k)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	if n, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	if dur, err := time.ParseDuration(os.Getenv(k)); err == nil {
		return dur
	}
	return d
}
