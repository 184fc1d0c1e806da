package patch

import (
	"strings"

	"golang.org/x/net/html"
)

// Selector matches one element by tag name and optionally a class and id.
type Selector struct {
	Tag   string
	Class string
	ID    string
}

// ParseSelector parses "tag", "tag.class", "tag#id" or "tag.class#id".
func ParseSelector(s string) Selector {
	var sel Selector
	if i := strings.IndexByte(s, '#'); i >= 0 {
		sel.ID = s[i+1:]
		s = s[:i]
	}
	if i := strings.IndexByte(s, '.'); i >= 0 {
		sel.Class = s[i+1:]
		s = s[:i]
	}
	sel.Tag = strings.ToLower(s)
	return sel
}

func (s Selector) matches(tag string, attrs map[string]string) bool {
	if s.Tag != "" && s.Tag != tag {
		return false
	}
	if s.ID != "" && attrs["id"] != s.ID {
		return false
	}
	if s.Class != "" {
		for _, c := range strings.Fields(attrs["class"]) {
			if c == s.Class {
				return true
			}
		}
		return false
	}
	return true
}

type ElementPlace int

const (
	// AfterOpen inserts right after the element's opening tag.
	AfterOpen ElementPlace = iota
	// BeforeClose inserts right before the element's closing tag.
	BeforeClose
	// ReplaceInner replaces everything between the opening and closing tags.
	ReplaceInner
	// BeforeElement inserts before the opening tag.
	BeforeElement
	// AfterElement inserts after the closing tag.
	AfterElement
)

// Element locates the first element reached by a chain of descendant
// selectors, e.g. "section.detail-header div.container".
type Element struct {
	Path  []Selector
	Place ElementPlace
}

// Elem builds an Element from a space separated selector path.
func Elem(path string, place ElementPlace) Element {
	var sels []Selector
	for _, f := range strings.Fields(path) {
		sels = append(sels, ParseSelector(f))
	}
	return Element{Path: sels, Place: place}
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

type openElement struct {
	tag     string
	matched int
}

func (e Element) Locate(content string) (Target, bool) {
	if len(e.Path) == 0 {
		return Target{}, false
	}

	z := html.NewTokenizer(strings.NewReader(content))
	offset := 0
	var stack []openElement

	for {
		tt := z.Next()
		start := offset
		offset += len(z.Raw())

		switch tt {
		case html.ErrorToken:
			return Target{}, false

		case html.StartTagToken, html.SelfClosingTagToken:
			tag, attrs := readTag(z)
			matched := 0
			if len(stack) > 0 {
				matched = stack[len(stack)-1].matched
			}
			if matched < len(e.Path) && e.Path[matched].matches(tag, attrs) {
				matched++
			}

			container := tt == html.StartTagToken && !voidElements[tag]
			if matched == len(e.Path) {
				return e.target(z, content, tag, container, start, offset)
			}
			if container {
				stack = append(stack, openElement{tag: tag, matched: matched})
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			for i := len(stack) - 1; i >= 0; i-- {
				if stack[i].tag == tag {
					stack = stack[:i]
					break
				}
			}
		}
	}
}

func (e Element) target(z *html.Tokenizer, content, tag string, container bool, openStart, openEnd int) (Target, bool) {
	switch e.Place {
	case AfterOpen:
		return Target{Start: openEnd, End: openEnd}, true
	case BeforeElement:
		return Target{Start: openStart, End: openStart}, true
	}

	closeStart, closeEnd := openEnd, openEnd
	if container {
		var ok bool
		closeStart, closeEnd, ok = findClose(z, tag, openEnd)
		if !ok {
			return Target{}, false
		}
	} else if e.Place != AfterElement {
		return Target{}, false
	}

	switch e.Place {
	case BeforeClose:
		return Target{Start: closeStart, End: closeStart}, true
	case ReplaceInner:
		return Target{Start: openEnd, End: closeStart, Text: content[openEnd:closeStart]}, true
	default:
		return Target{Start: closeEnd, End: closeEnd}, true
	}
}

// findClose scans to the end tag balancing the opening tag at offset.
func findClose(z *html.Tokenizer, tag string, offset int) (int, int, bool) {
	depth := 1
	for {
		tt := z.Next()
		start := offset
		offset += len(z.Raw())

		switch tt {
		case html.ErrorToken:
			return 0, 0, false
		case html.StartTagToken:
			if name, _ := z.TagName(); string(name) == tag {
				depth++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) == tag {
				depth--
				if depth == 0 {
					return start, offset, true
				}
			}
		}
	}
}

func readTag(z *html.Tokenizer) (string, map[string]string) {
	name, more := z.TagName()
	tag := string(name)
	attrs := map[string]string{}
	for more {
		var k, v []byte
		k, v, more = z.TagAttr()
		attrs[string(k)] = string(v)
	}
	return tag, attrs
}
