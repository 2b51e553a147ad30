package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubEnv struct {
	userAgent string
	bridge    bool
	nested    bool
}

func (s stubEnv) UserAgent() string   { return s.userAgent }
func (s stubEnv) HasHostBridge() bool { return s.bridge }
func (s stubEnv) IsNested() bool      { return s.nested }

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		env  stubEnv
		want Context
	}{
		{"plain browser", stubEnv{userAgent: "Mozilla/5.0 (X11; Linux x86_64)"}, Browser},
		{"host bridge wins", stubEnv{bridge: true}, EmbeddedWebView},
		{"android webview marker", stubEnv{userAgent: "Mozilla/5.0 (Linux; Android 13; wv) Chrome/110"}, EmbeddedWebView},
		{"app shell marker", stubEnv{userAgent: "RentflowApp/2.1 Android"}, EmbeddedWebView},
		{"nested frame", stubEnv{nested: true}, Iframe},
		{"bridge beats nesting", stubEnv{bridge: true, nested: true}, EmbeddedWebView},
		{"no signals defaults to browser", stubEnv{}, Browser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewDetector(tt.env).Detect())
		})
	}
}

func TestDetect_NilEnvironmentDefaultsToBrowser(t *testing.T) {
	assert.Equal(t, Browser, NewDetector(nil).Detect())
}

func TestRequiresRedirect(t *testing.T) {
	assert.False(t, Browser.RequiresRedirect())
	assert.True(t, EmbeddedWebView.RequiresRedirect())
	assert.True(t, Iframe.RequiresRedirect())
}
