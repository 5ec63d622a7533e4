package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache middleware placed
// in front of the public catalogue. When Enabled is false or Redis is
// unreachable the middleware passes requests straight through.
type CacheConfig struct {
	Enabled      bool          `env:"CACHE_ENABLED" envDefault:"true"`
	MethodList   []string      `env:"CACHE_METHODS" envDefault:"GET" envSeparator:","`
	TTL          time.Duration `env:"CACHE_TTL" envDefault:"30s"`
	KeyStrategy  string        `env:"CACHE_KEY_STRATEGY" envDefault:"route_query"`
	Prefix       string        `env:"CACHE_PREFIX" envDefault:"mkt:cache"`
	MaxBodyBytes int           `env:"CACHE_MAX_BODY_BYTES" envDefault:"1048576"`

	// Methods is MethodList upper-cased into a set.
	Methods map[string]bool
}

func (c *CacheConfig) normalize() {
	c.Methods = map[string]bool{}
	for _, m := range c.MethodList {
		if m = strings.TrimSpace(strings.ToUpper(m)); m != "" {
			c.Methods[m] = true
		}
	}
	if c.TTL <= 0 {
		c.TTL = time.Second
	}
}
