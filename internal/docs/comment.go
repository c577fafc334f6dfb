// Package docs turns the documentation comments a front end attaches to
// declarations into Documentation nodes of the metadata tree.
package docs

import (
	"strings"
)

// Comment is a parsed javadoc-style documentation comment.
type Comment struct {
	Content   string // body text with comment markers removed
	FirstLine string // first sentence of Content
	Tags      []Tag
}

// Tag is one "@name ..." entry of a comment.
type Tag struct {
	Name string // tag name without the leading '@', lower-cased
	Arg  string // first word for tags that take an argument (param, throws)
	Text string
}

// argTags take a leading argument word before their text.
var argTags = map[string]bool{
	"param":     true,
	"throws":    true,
	"exception": true,
}

// IsEmpty reports whether the comment carried no text and no tags.
func (c Comment) IsEmpty() bool {
	return c.Content == "" && len(c.Tags) == 0
}

// Parse parses a raw comment. It accepts "/** ... */" blocks with optional
// leading asterisks as well as runs of "///" or "//" line comments.
func Parse(raw string) Comment {
	var c Comment
	var body []string
	var cur *Tag

	for _, line := range commentLines(raw) {
		if len(line) > 1 && line[0] == '@' && line[1] != ' ' {
			name, rest, _ := strings.Cut(line[1:], " ")
			tag := Tag{Name: strings.ToLower(name)}
			rest = strings.TrimSpace(rest)
			if argTags[tag.Name] {
				tag.Arg, rest, _ = strings.Cut(rest, " ")
				rest = strings.TrimSpace(rest)
			}
			tag.Text = rest
			c.Tags = append(c.Tags, tag)
			cur = &c.Tags[len(c.Tags)-1]
			continue
		}
		if line == "" {
			continue
		}
		if cur != nil {
			cur.Text = joinText(cur.Text, line)
			continue
		}
		body = append(body, line)
	}

	c.Content = strings.Join(body, " ")
	c.FirstLine = firstSentence(c.Content)
	return c
}

func commentLines(raw string) []string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "/**")
	raw = strings.TrimSuffix(raw, "*/")

	lines := strings.Split(raw, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "///"):
			line = line[3:]
		case strings.HasPrefix(line, "//"):
			line = line[2:]
		case strings.HasPrefix(line, "*"):
			line = strings.TrimLeft(line, "*")
		}
		out = append(out, strings.TrimSpace(line))
	}
	return out
}

func joinText(a, b string) string {
	if a == "" {
		return b
	}
	return a + " " + b
}

func firstSentence(s string) string {
	if i := strings.Index(s, ". "); i >= 0 {
		return s[:i+1]
	}
	return s
}
