package v1

import "time"

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	baseURL     string
	authToken   string
	timeout     time.Duration
	maxMessages int
}

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// WithToken sets the bearer token for authenticated requests.
func WithToken(token string) Option {
	return func(c *clientConfig) {
		c.authToken = token
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = d
	}
}

// WithMaxMessages caps how many messages a persisted session keeps.
func WithMaxMessages(n int) Option {
	return func(c *clientConfig) {
		c.maxMessages = n
	}
}
