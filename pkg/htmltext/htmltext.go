// Package htmltext converts HTML documents into readable plain text.
//
// The output keeps the document's reading order and paragraph structure
// without leaking markup: paragraphs and headings become blank-line separated
// blocks, list items are prefixed with "*" or their number, links are written
// as "text (url)" and images as their alt text. Script, style and head content
// is dropped.
//
//	text, err := htmltext.Convert(`<p>Hello <b>Bob</b></p><p><a href="https://x.io">Open</a></p>`)
//	// text == "Hello Bob\n\nOpen (https://x.io)"
package htmltext

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Convert parses src as HTML and renders it as plain text.
func Convert(src string) (string, error) {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return "", err
	}

	w := &writer{}
	w.walk(doc)
	return w.String(), nil
}

type list struct {
	ordered bool
	n       int
}

type writer struct {
	buf          []byte
	lists        []list
	pre          int
	pendingSpace bool
}

func (w *writer) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data)
	case html.DocumentNode:
		w.children(n)
	case html.ElementNode:
		w.element(n)
	}
}

func (w *writer) children(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

func (w *writer) element(n *html.Node) {
	switch n.DataAtom {
	case atom.Head, atom.Script, atom.Style, atom.Title, atom.Template, atom.Noscript:
		return

	case atom.Br:
		w.trimSpaces()
		w.buf = append(w.buf, '\n')
		w.pendingSpace = false

	case atom.Hr:
		w.block(2)

	case atom.P, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Blockquote, atom.Table, atom.Dl, atom.Figure, atom.Address:
		w.block(2)
		w.children(n)
		w.block(2)

	case atom.Pre:
		w.block(2)
		w.pre++
		w.children(n)
		w.pre--
		w.block(2)

	case atom.Ul, atom.Ol:
		if len(w.lists) == 0 {
			w.block(2)
		} else {
			w.block(1)
		}
		w.lists = append(w.lists, list{ordered: n.DataAtom == atom.Ol})
		w.children(n)
		w.lists = w.lists[:len(w.lists)-1]
		if len(w.lists) == 0 {
			w.block(2)
		} else {
			w.block(1)
		}

	case atom.Li:
		w.block(1)
		w.listPrefix()
		w.children(n)
		w.block(1)

	case atom.Div, atom.Tr, atom.Section, atom.Article, atom.Header, atom.Footer,
		atom.Main, atom.Nav, atom.Aside, atom.Dt, atom.Dd, atom.Caption, atom.Center:
		w.block(1)
		w.children(n)
		w.block(1)

	case atom.Td, atom.Th:
		w.children(n)
		w.pendingSpace = true

	case atom.A:
		start := len(w.buf)
		w.children(n)
		w.link(attr(n, "href"), strings.TrimSpace(string(w.buf[start:])))

	case atom.Img:
		if alt := attr(n, "alt"); alt != "" {
			w.text(alt)
		}

	default:
		w.children(n)
	}
}

// link appends the target after the link text unless it adds nothing.
func (w *writer) link(href, label string) {
	href = strings.TrimSpace(href)
	switch {
	case href == "", strings.HasPrefix(href, "#"), href == label, href == "mailto:"+label:
		return
	case label == "":
		w.text(href)
	default:
		w.text(" (" + href + ")")
	}
}

func (w *writer) listPrefix() {
	l := &w.lists[len(w.lists)-1]
	l.n++
	indent := strings.Repeat("  ", len(w.lists)-1)
	if l.ordered {
		w.buf = append(w.buf, indent+strconv.Itoa(l.n)+". "...)
	} else {
		w.buf = append(w.buf, indent+"* "...)
	}
	w.pendingSpace = false
}

func (w *writer) text(s string) {
	if w.pre > 0 {
		w.buf = append(w.buf, s...)
		w.pendingSpace = false
		return
	}

	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s != "" {
			w.pendingSpace = true
		}
		return
	}

	if w.pendingSpace || isSpace(s[0]) {
		if n := len(w.buf); n > 0 && w.buf[n-1] != '\n' && w.buf[n-1] != ' ' {
			w.buf = append(w.buf, ' ')
		}
	}
	w.buf = append(w.buf, strings.Join(fields, " ")...)
	w.pendingSpace = isSpace(s[len(s)-1])
}

// block ends the current line and makes sure n line breaks precede the next content.
func (w *writer) block(n int) {
	w.pendingSpace = false
	w.trimSpaces()
	if len(w.buf) == 0 {
		return
	}
	have := 0
	for i := len(w.buf) - 1; i >= 0 && w.buf[i] == '\n'; i-- {
		have++
	}
	for ; have < n; have++ {
		w.buf = append(w.buf, '\n')
	}
}

func (w *writer) trimSpaces() {
	for len(w.buf) > 0 && (w.buf[len(w.buf)-1] == ' ' || w.buf[len(w.buf)-1] == '\t') {
		w.buf = w.buf[:len(w.buf)-1]
	}
}

// String returns the text with trailing spaces removed from every line
// and at most one blank line between blocks.
func (w *writer) String() string {
	lines := strings.Split(string(w.buf), "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.Trim(strings.Join(out, "\n"), "\n")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
