package htmltext_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/missive/pkg/htmltext"
)

func TestConvert(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "inline formatting",
			html: "<b>Hi</b>",
			want: "Hi",
		},
		{
			name: "paragraphs",
			html: "<p>Hello <strong>Bob</strong>,</p>\n<p>Welcome   aboard.</p>\n",
			want: "Hello Bob,\n\nWelcome aboard.",
		},
		{
			name: "line breaks",
			html: "<p>one<br>two<br/>three</p>",
			want: "one\ntwo\nthree",
		},
		{
			name: "headings",
			html: "<h1>Title</h1><p>Body</p>",
			want: "Title\n\nBody",
		},
		{
			name: "unordered list",
			html: "<ul>\n<li>first</li>\n<li>second</li>\n</ul>",
			want: "* first\n* second",
		},
		{
			name: "ordered list",
			html: "<ol><li>a</li><li>b</li></ol>",
			want: "1. a\n2. b",
		},
		{
			name: "nested list",
			html: "<ul><li>a<ul><li>b</li></ul></li></ul>",
			want: "* a\n  * b",
		},
		{
			name: "link with distinct text",
			html: `<a href="https://example.com/reset">Reset password</a>`,
			want: "Reset password (https://example.com/reset)",
		},
		{
			name: "link text equal to href",
			html: `<a href="https://example.com">https://example.com</a>`,
			want: "https://example.com",
		},
		{
			name: "mailto link",
			html: `<a href="mailto:bob@example.com">bob@example.com</a>`,
			want: "bob@example.com",
		},
		{
			name: "anchor link",
			html: `<a href="#top">Top</a>`,
			want: "Top",
		},
		{
			name: "image alt",
			html: `<p><img src="logo.png" alt="ACME"> Inc</p>`,
			want: "ACME Inc",
		},
		{
			name: "head, script and style dropped",
			html: "<html><head><title>T</title><style>p{}</style></head><body><script>x()</script><p>Visible</p></body></html>",
			want: "Visible",
		},
		{
			name: "preformatted text",
			html: "<pre>a  b\n  c</pre>",
			want: "a  b\n  c",
		},
		{
			name: "entities decoded",
			html: "<p>Tom &amp; Jerry &lt;3</p>",
			want: "Tom & Jerry <3",
		},
		{
			name: "table cells",
			html: "<table><tr><td>a</td><td>b</td></tr><tr><td>c</td><td>d</td></tr></table>",
			want: "a b\nc d",
		},
		{
			name: "empty input",
			html: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := htmltext.Convert(tt.html)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
