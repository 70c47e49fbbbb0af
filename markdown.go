package main

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// markdownToText strips markdown down to the words worth speaking. Code
// blocks and raw HTML are dropped; headings and list items end in a full
// stop so they are read as separate sentences.
func markdownToText(src []byte) string {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch n := n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			if entering {
				b.Write(n.Segment.Value(src))
				if n.SoftLineBreak() || n.HardLineBreak() {
					b.WriteByte(' ')
				}
			}
		case *ast.String:
			if entering {
				b.Write(n.Value)
			}
		case *ast.AutoLink:
			if entering {
				b.Write(n.Label(src))
			}
		case *ast.Heading, *ast.ListItem:
			if !entering {
				endSentence(&b)
			}
		case *ast.Paragraph, *ast.TextBlock:
			if !entering {
				b.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})

	lines := strings.Split(b.String(), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

func endSentence(b *strings.Builder) {
	s := strings.TrimRightFunc(b.String(), unicode.IsSpace)
	if s == "" {
		return
	}
	r, _ := utf8.DecodeLastRuneInString(s)
	if !strings.ContainsRune(".!?:;", r) {
		b.Reset()
		b.WriteString(s)
		b.WriteByte('.')
	}
	b.WriteByte('\n')
}
