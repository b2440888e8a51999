package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "hello there", "hello there"},
		{"keeps emphasis", "<b>bold</b> and <em>italic</em>", "<b>bold</b> and <em>italic</em>"},
		{"strips script", `hi<script>alert("x")</script>`, "hi"},
		{"strips event handlers", `<p onclick="steal()">ok</p>`, "<p>ok</p>"},
		{"empty", "", ""},
		{"whitespace trimmed", "  spaced  ", "spaced"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Message(tt.in))
		})
	}
}

func TestMessageLinksGetNoFollow(t *testing.T) {
	out := Message(`<a href="https://example.com">link</a>`)
	assert.Contains(t, out, `rel="nofollow"`)
	assert.Contains(t, out, `https://example.com`)
}

func TestUsername(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "gopher-1234", "gopher-1234"},
		{"markup stripped", "<b>evil</b>", "evil"},
		{"entities decoded then stripped", "&lt;i&gt;x&lt;/i&gt;", "x"},
		{"empty becomes anon", "", "anon"},
		{"only markup becomes anon", "<script></script>", "anon"},
		{"capped at 24", strings.Repeat("a", 40), strings.Repeat("a", 24)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Username(tt.in))
		})
	}
}
