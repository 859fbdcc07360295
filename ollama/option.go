package ollama

import (
	"net/http"
	"time"
)

// DefaultBaseURL is the address of a local Ollama server.
const DefaultBaseURL = "http://localhost:11434"

// Option configures a Client.
type Option func(*options)

type options struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	headers map[string]string
}

// WithBaseURL sets the server address.
func WithBaseURL(baseURL string) Option {
	return func(o *options) {
		o.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.client = client
	}
}

// WithTimeout sets the timeout of the default HTTP client. It has no effect
// together with WithHTTPClient.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithHeader adds a header to every request (e.g. for an authenticating proxy).
func WithHeader(key, value string) Option {
	return func(o *options) {
		o.headers[key] = value
	}
}

var defaultClient = &http.Client{Timeout: 5 * time.Minute}

func apply(opts []Option) options {
	o := options{
		baseURL: DefaultBaseURL,
		client:  defaultClient,
		headers: make(map[string]string),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.timeout > 0 && o.client == defaultClient {
		o.client = &http.Client{Timeout: o.timeout}
	}
	return o
}
