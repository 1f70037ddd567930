package elodex

import (
	"time"

	"go.uber.org/zap"
)

const (
	driverElasticsearch = "elasticsearch"
	driverRedis         = "redis"
	driverEmbedded      = "embedded"
)

type clientConfig struct {
	driver           string
	addrs            []string
	username         string
	password         string
	maxRetries       int
	dir              string
	readinessTimeout time.Duration
	defaultIndex     string
	refresh          bool
	analyzers        map[string]map[string]any
	instrument       bool
	logger           *zap.Logger
}

// Option configures the Client.
type Option func(*clientConfig)

// WithElasticsearch connects to an Elasticsearch cluster.
func WithElasticsearch(addrs ...string) Option {
	return func(c *clientConfig) {
		c.driver = driverElasticsearch
		c.addrs = addrs
	}
}

// WithRedis uses Redis with the RediSearch and RedisJSON modules.
func WithRedis(addrs ...string) Option {
	return func(c *clientConfig) {
		c.driver = driverRedis
		c.addrs = addrs
	}
}

// WithEmbedded uses an in-process index. An empty dir keeps indexes in
// memory. This is the default.
func WithEmbedded(dir string) Option {
	return func(c *clientConfig) {
		c.driver = driverEmbedded
		c.dir = dir
	}
}

// WithCredentials sets the backend username and password.
func WithCredentials(username, password string) Option {
	return func(c *clientConfig) {
		c.username = username
		c.password = password
	}
}

// WithMaxRetries sets the Elasticsearch client retry count.
func WithMaxRetries(n int) Option {
	return func(c *clientConfig) { c.maxRetries = n }
}

// WithReadinessTimeout bounds the wait for the backend in New.
func WithReadinessTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.readinessTimeout = d }
}

// WithDefaultIndex sets the index used when none is given.
func WithDefaultIndex(name string) Option {
	return func(c *clientConfig) { c.defaultIndex = name }
}

// WithRefresh makes every write visible to search immediately.
func WithRefresh(on bool) Option {
	return func(c *clientConfig) { c.refresh = on }
}

// WithAnalyzers adds analyzers to every index created through the client.
func WithAnalyzers(analyzers map[string]map[string]any) Option {
	return func(c *clientConfig) { c.analyzers = analyzers }
}

// WithMetrics records Prometheus metrics for every backend call.
func WithMetrics() Option {
	return func(c *clientConfig) { c.instrument = true }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *clientConfig) {
		if l != nil {
			c.logger = l
		}
	}
}
