package validation

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewURLValidator(t *testing.T) {
	v := NewURLValidator()
	assert.False(t, v.AllowLocalhost)
	assert.False(t, v.AllowPrivateIPs)
	assert.Equal(t, 2048, v.MaxLength)

	p := NewPermissiveURLValidator()
	assert.True(t, p.AllowLocalhost)
	assert.True(t, p.AllowPrivateIPs)
}

func TestValidateAndNormalize(t *testing.T) {
	v := NewURLValidator()

	tests := []struct {
		name     string
		input    string
		expected string
		errMsg   string
	}{
		{name: "empty", input: "", errMsg: "cannot be empty"},
		{name: "whitespace", input: "   ", errMsg: "cannot be empty"},
		{name: "adds https", input: "blog.golang.org/feed.atom", expected: "https://blog.golang.org/feed.atom"},
		{name: "keeps http", input: "http://news.ycombinator.com/rss", expected: "http://news.ycombinator.com/rss"},
		{name: "trims", input: "  https://xkcd.com/rss.xml  ", expected: "https://xkcd.com/rss.xml"},
		{name: "ftp", input: "ftp://files.org/feed", errMsg: "http or https"},
		{name: "script chars", input: "https://a.org/<script>", errMsg: "invalid characters"},
		{name: "localhost", input: "http://localhost:8090", errMsg: "localhost"},
		{name: "loopback", input: "http://127.0.0.1/feed", errMsg: "localhost"},
		{name: "private", input: "https://192.168.1.10/feed", errMsg: "private IP"},
		{name: "unroutable", input: "http://0.0.0.0/feed", errMsg: "unroutable"},
		{name: "traversal", input: "https://a.org/../etc/passwd", errMsg: "traversal"},
		{name: "js query", input: "https://a.org/feed?x=javascript:alert(1)", errMsg: "suspicious"},
		{name: "no host", input: "https:///feed", errMsg: "hostname"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.ValidateAndNormalize(tt.input)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestValidateAndNormalize_TooLong(t *testing.T) {
	v := &URLValidator{MaxLength: 20}
	_, err := v.ValidateAndNormalize("https://example.org/a/very/long/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too long")
}

func TestValidateBaseURL(t *testing.T) {
	v := NewPermissiveURLValidator()

	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"http://127.0.0.1:8090", "http://127.0.0.1:8090", false},
		{"http://localhost:8090/", "http://localhost:8090", false},
		{"https://api.folio.dev/pb//", "https://api.folio.dev/pb", false},
		{"https://api.folio.dev/?x=1", "", true},
		{"https://api.folio.dev/#top", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := v.ValidateBaseURL(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		ip      string
		private bool
	}{
		{"10.1.2.3", true},
		{"172.16.0.1", true},
		{"172.32.0.1", false},
		{"192.168.0.1", true},
		{"169.254.1.1", true},
		{"127.0.0.1", true},
		{"8.8.8.8", false},
		{"fd00::1", true},
		{"fe80::1", true},
		{"2001:4860:4860::8888", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.private, isPrivateIP(net.ParseIP(tt.ip)), tt.ip)
	}
}

func TestIsLocalhost(t *testing.T) {
	assert.True(t, isLocalhost("localhost"))
	assert.True(t, isLocalhost("::1"))
	assert.True(t, isLocalhost("app.localhost"))
	assert.False(t, isLocalhost("localhost.org"))
}
