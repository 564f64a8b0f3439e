// Package block parses the interactive block protocol embedded in dialogue
// text and renders blocks back into it.
package block

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/tbxark/intakeform/types"
)

const delimiter = "block"

// Result is the outcome of parsing one message.
type Result struct {
	Preface string        `json:"preface"`
	Blocks  []types.Block `json:"blocks"`
}

// region is the raw material of one delimited block.
type region struct {
	attrs  map[string]string
	body   string
	closed bool
}

// Parse splits raw into its leading prose and the blocks it carries.
// Malformed blocks degrade to an empty GenericChoice; Parse never fails.
func Parse(raw string) Result {
	preface, regions := scan(raw)
	blocks := make([]types.Block, 0, len(regions))
	for i, r := range regions {
		blocks = append(blocks, build(i, r))
	}
	assignBlockIDs(blocks)
	return Result{Preface: preface, Blocks: blocks}
}

func scan(raw string) (string, []region) {
	var (
		z          = html.NewTokenizer(strings.NewReader(raw))
		offset     int
		prefaceEnd = -1
		cur        *region
		body       strings.Builder
		regions    []region
	)
	flush := func(closed bool) {
		cur.body = body.String()
		cur.closed = closed
		regions = append(regions, *cur)
		cur = nil
		body.Reset()
	}
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		// TagName lowercases the buffer in place, copy the raw bytes first.
		tok := string(z.Raw())
		start := offset

		var (
			name    []byte
			hasAttr bool
		)
		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken, html.EndTagToken:
			name, hasAttr = z.TagName()
		}
		if string(name) != delimiter {
			// Comments, doctypes, unterminated quotes and raw text can run
			// over a delimiter. Keep what precedes it and rescan from there.
			if i := delimiterIndex(tok); i > 0 {
				if cur != nil {
					body.WriteString(tok[:i])
				}
				offset = start + i
				z = html.NewTokenizer(strings.NewReader(raw[offset:]))
				continue
			}
		}
		offset += len(tok)

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			if string(name) != delimiter {
				z.NextIsNotRawText()
				break
			}
			if prefaceEnd < 0 {
				prefaceEnd = start
			}
			if cur != nil {
				// a new delimiter before the previous one was closed
				flush(false)
			}
			cur = &region{attrs: readAttrs(z, hasAttr, tok)}
			if tt == html.SelfClosingTagToken {
				flush(true)
			}
			continue
		case html.EndTagToken:
			if string(name) == delimiter {
				if cur != nil {
					flush(true)
				}
				continue
			}
		}
		if cur != nil {
			body.WriteString(tok)
		}
	}
	if cur != nil {
		flush(false)
	}

	if prefaceEnd < 0 {
		return strings.TrimSpace(raw), nil
	}
	return strings.TrimSpace(raw[:prefaceEnd]), regions
}

// delimiterIndex returns the position of the first block start or end tag
// in s after its first byte, or -1. Matching is ASCII case-insensitive.
func delimiterIndex(s string) int {
	for i := 1; i < len(s); i++ {
		if s[i] != '<' {
			continue
		}
		j := i + 1
		if j < len(s) && s[j] == '/' {
			j++
		}
		k := j + len(delimiter)
		if k > len(s) || !strings.EqualFold(s[j:k], delimiter) {
			continue
		}
		if k == len(s) || isTagEnd(s[k]) {
			return i
		}
	}
	return -1
}

func isTagEnd(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', '/', '>':
		return true
	}
	return false
}

// readAttrs collects attributes with lowercased keys. An unquoted value
// directly followed by "/>" keeps the slash in the tokenizer's view; it is
// trimmed here.
func readAttrs(z *html.Tokenizer, hasAttr bool, tok string) map[string]string {
	attrs := make(map[string]string)
	var last string
	for hasAttr {
		var key, val []byte
		key, val, hasAttr = z.TagAttr()
		k := string(key)
		if _, ok := attrs[k]; ok {
			continue
		}
		attrs[k] = string(val)
		last = k
	}
	if last != "" && strings.HasSuffix(tok, "/>") && !strings.HasSuffix(tok, `"/>`) && !strings.HasSuffix(tok, `'/>`) {
		attrs[last] = strings.TrimSuffix(attrs[last], "/")
	}
	return attrs
}

// attr returns the first non-blank attribute among names.
func attr(attrs map[string]string, names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(attrs[n]); v != "" {
			return v
		}
	}
	return ""
}
