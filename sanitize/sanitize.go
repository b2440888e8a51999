// Package sanitize cleans remote HTML before the view renders it. Message
// bodies may carry limited formatting; usernames are plain text only.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// usernamePolicy strips all markup.
	usernamePolicy = bluemonday.StrictPolicy()

	// messagePolicy allows the safe formatting subset the web client
	// renders: inline emphasis, paragraphs, lists, quotes, code and
	// nofollow links.
	messagePolicy = bluemonday.UGCPolicy().
			AllowElements("b", "i", "em", "strong", "u", "s", "del").
			AllowElements("p", "br", "ul", "ol", "li", "blockquote", "code", "pre").
			AllowURLSchemes("http", "https", "mailto").
			AllowRelativeURLs(false).
			RequireNoFollowOnLinks(true)
)

// Message sanitizes a message body, keeping safe formatting.
func Message(text string) string {
	if text == "" {
		return ""
	}
	return strings.TrimSpace(messagePolicy.Sanitize(text))
}

// Username sanitizes a display name down to plain text, capped at 24
// characters, with "anon" as the empty fallback.
func Username(name string) string {
	cleaned := strings.TrimSpace(usernamePolicy.Sanitize(html.UnescapeString(name)))
	if len(cleaned) > 24 {
		cleaned = cleaned[:24]
	}
	if cleaned == "" {
		return "anon"
	}
	return cleaned
}
