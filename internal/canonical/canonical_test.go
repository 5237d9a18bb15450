package canonical_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mstrand/serp-audit/internal/canonical"
)

func TestURL(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"tracking params stripped", "https://a.com/page?utm_source=x&utm_medium=y&gclid=123", "https://a.com/page"},
		{"content params kept in order", "https://a.com/page?b=2&utm_source=x&a=1", "https://a.com/page?b=2&a=1"},
		{"scheme and host lowered", "HTTPS://Example.COM/Path", "https://example.com/Path"},
		{"fragment dropped", "https://a.com/page#section", "https://a.com/page"},
		{"trailing slash stripped", "https://a.com/page/", "https://a.com/page"},
		{"root slash stripped", "https://a.com/", "https://a.com"},
		{"matomo and piwik prefixes", "https://a.com/p?mtm_cid=1&pk_campaign=2&keep=3", "https://a.com/p?keep=3"},
		{"facebook click id", "https://a.com/p?fbclid=abc", "https://a.com/p"},
		{"not a url falls back to lowering", "Not A URL", "not a url"},
		{"whitespace trimmed", "  https://a.com/x  ", "https://a.com/x"},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, canonical.URL(tc.in))
		})
	}
}

func TestURLIdempotent(t *testing.T) {
	inputs := []string{
		"https://a.com/page?utm_source=x&b=2",
		"HTTPS://Example.COM/Path/#frag",
		"not a url",
	}
	for _, in := range inputs {
		once := canonical.URL(in)
		require.Equal(t, once, canonical.URL(once))
	}
}

func TestText(t *testing.T) {
	require.Equal(t, "how does it work?", canonical.Text("  How   does\tit \n work?  "))
	require.Equal(t, "", canonical.Text("   "))
}

func TestDomain(t *testing.T) {
	require.Equal(t, "example.com", canonical.Domain("https://www.Example.com:8080/path"))
	require.Equal(t, "sub.example.com", canonical.Domain("https://sub.example.com/x"))
	require.Equal(t, "", canonical.Domain("no scheme here"))
	require.Equal(t, "", canonical.Domain(""))
}
