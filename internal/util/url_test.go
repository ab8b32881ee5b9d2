package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const baseURL = "https://crowsnest.example.com"

func TestIsRedirectSafe_RelativePaths(t *testing.T) {
	assert.True(t, IsRedirectSafe("", baseURL))
	assert.True(t, IsRedirectSafe("/", baseURL))
	assert.True(t, IsRedirectSafe("/ecdis", baseURL))
	assert.True(t, IsRedirectSafe("/reports/weekly", baseURL))
}

func TestIsRedirectSafe_RejectsProtocolRelative(t *testing.T) {
	assert.False(t, IsRedirectSafe("//evil.com", baseURL))
	assert.False(t, IsRedirectSafe("/\\evil.com", baseURL))
}

func TestIsRedirectSafe_RejectsHeaderInjection(t *testing.T) {
	assert.False(t, IsRedirectSafe("/ok\r\nSet-Cookie: x=1", baseURL))
}

func TestIsRedirectSafe_AbsoluteURLs(t *testing.T) {
	assert.True(t, IsRedirectSafe("https://crowsnest.example.com/auth", baseURL))
	assert.False(t, IsRedirectSafe("https://evil.com/auth", baseURL))
	assert.False(t, IsRedirectSafe("javascript:alert(1)", baseURL))
	assert.False(t, IsRedirectSafe("data:text/html,x", baseURL))
}
