package researchrag

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver      string // "redis" or "postgres"
	addrs       []string
	password    string
	postgresURL string
	keyPrefix   string

	completer Completer
	web       WebSearcher

	topics      []string
	searchLimit int
	callTimeout time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRedis stores content and full-text indexes in Redis with the search module.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithPostgres stores content in Postgres. The schema is created on connect.
func WithPostgres(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "postgres"
		c.postgresURL = url
	})
}

// WithKeyPrefix namespaces Redis keys and indexes. Default: "researchrag:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithCompleter sets the language model. Required for Ask and Deep.
func WithCompleter(m Completer) Option {
	return optionFunc(func(c *clientConfig) {
		c.completer = m
	})
}

// WithWebSearcher enables the web search fallback for questions the
// knowledge base cannot answer.
func WithWebSearcher(w WebSearcher) Option {
	return optionFunc(func(c *clientConfig) {
		c.web = w
	})
}

// WithTopics sets the research vocabulary used to route questions.
func WithTopics(topics ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.topics = topics
	})
}

// WithSearchLimit caps candidate blocks per question. Default: 25.
func WithSearchLimit(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.searchLimit = n
	})
}

// WithCallTimeout bounds each store, model and web search call. Default: 30s.
func WithCallTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.callTimeout = d
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
