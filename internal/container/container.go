package container

import (
	"fmt"
	"time"
)

// Store backends.
const (
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Options is the service configuration. humacli maps every field to a flag
// and a SERVICE_* environment variable.
type Options struct {
	Port              int    `default:"8888"           help:"Port to listen on"                                         short:"p"`
	RedisAddr         string `default:"localhost:6379" help:"Redis server address"                                      short:"r"`
	Store             string `default:"redis"          help:"Window store backend: redis or memory"                     short:"s"`
	StoreTimeoutMS    int    `default:"250"            help:"Per-decision window store timeout in ms, 0 disables"`
	FailOpen          bool   `default:"false"          help:"Admit requests when the window store is unavailable"`
	TrustProxyHeaders bool   `default:"false"          help:"Resolve clients from X-Forwarded-For and X-Real-IP"`
	AuditEnabled      bool   `default:"false"          help:"Publish quota events to the Redis stream"`
	AuditQueueSize    int    `default:"1024"           help:"Quota events buffered for publishing before new ones are dropped"`
	AuditTimeoutMS    int    `default:"1000"           help:"Per-event audit publish timeout in ms"`
	PostgresDSN       string `default:""               help:"PostgreSQL DSN for the audit consumer, empty logs only"`
	LogFormat         string `default:"console"        help:"Log format: console or json"`
}

// Validate rejects option combinations the service cannot start with.
func (o *Options) Validate() error {
	switch o.Store {
	case StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("unknown store %q: must be %q or %q", o.Store, StoreRedis, StoreMemory)
	}

	if o.StoreTimeoutMS < 0 {
		return fmt.Errorf("store timeout must not be negative, got %d", o.StoreTimeoutMS)
	}

	if o.AuditEnabled && o.AuditQueueSize <= 0 {
		return fmt.Errorf("audit queue size must be positive, got %d", o.AuditQueueSize)
	}

	if o.AuditEnabled && o.Store != StoreRedis {
		return fmt.Errorf("audit stream requires the %q store", StoreRedis)
	}

	return nil
}

// AuditTimeout returns AuditTimeoutMS as a duration.
func (o *Options) AuditTimeout() time.Duration {
	return time.Duration(o.AuditTimeoutMS) * time.Millisecond
}

// StoreTimeout returns StoreTimeoutMS as a duration.
func (o *Options) StoreTimeout() time.Duration {
	return time.Duration(o.StoreTimeoutMS) * time.Millisecond
}
