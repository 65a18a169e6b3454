package content

import (
	"fmt"
	"strings"

	"github.com/go-shiori/dom"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/atlastales/storygraph/pkg/story"
)

// DOMEngine tokenizes markup through a full HTML parse
// (golang.org/x/net/html) and a depth-first walk.
type DOMEngine struct{}

func (e *DOMEngine) Name() string { return "dom" }

func (e *DOMEngine) Parse(b *story.Builder, fragment string, opts Options, out *Output) error {
	segs, err := e.tokenize(fragment)
	if err != nil {
		return err
	}
	return emitSegments(b, segs, opts, out)
}

func (e *DOMEngine) tokenize(fragment string) ([]segment, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse markup fragment: %w", err)
	}

	t := &domTokenizer{}
	for _, n := range nodes {
		t.walkBlock(n)
	}
	t.flushText("")
	return t.segs, nil
}

type domTokenizer struct {
	segs      []segment
	buf       strings.Builder
	navTokens []navToken
}

// flushText closes the current inline run as one text segment. wrap, when
// non-empty, is the outer HTML of a paragraph block emitted whole.
func (t *domTokenizer) flushText(wrap string) {
	raw := wrap
	if raw == "" {
		raw = t.buf.String()
	}
	t.buf.Reset()
	tokens := t.navTokens
	t.navTokens = nil

	if strings.TrimSpace(raw) == "" && len(tokens) == 0 {
		return
	}
	t.segs = append(t.segs, segment{Kind: segText, HTML: raw, NavTokens: tokens})
}

var blockTags = map[string]bool{
	"p": true, "div": true, "blockquote": true, "section": true, "article": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "table": true, "pre": true,
}

func (t *domTokenizer) walkBlock(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		t.buf.WriteString(html.EscapeString(n.Data))
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
	default:
		return
	}

	tag := dom.TagName(n)
	switch {
	case tag == "style":
		t.flushText("")
		t.segs = append(t.segs, segment{Kind: segStyle, CSS: dom.TextContent(n)})

	case tag == "figure":
		t.flushText("")
		img := dom.QuerySelector(n, "img")
		if img == nil {
			return
		}
		caption := ""
		if figcap := dom.QuerySelector(n, "figcaption"); figcap != nil {
			caption = strings.TrimSpace(dom.TextContent(figcap))
		}
		t.segs = append(t.segs, segment{
			Kind:    segImage,
			Src:     dom.GetAttribute(img, "src"),
			Alt:     dom.GetAttribute(img, "alt"),
			Caption: caption,
		})

	case tag == "img":
		t.flushText("")
		t.segs = append(t.segs, segment{
			Kind: segImage,
			Src:  dom.GetAttribute(n, "src"),
			Alt:  dom.GetAttribute(n, "alt"),
		})

	case tag == "iframe":
		t.flushText("")
		t.segs = append(t.segs, segment{Kind: segIframe, FrameSrc: dom.GetAttribute(n, "src")})

	case blockTags[tag]:
		t.flushText("")
		if !hasSpecialDescendant(n) {
			t.flushText(dom.OuterHTML(n))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			t.walkInline(c)
		}
		t.flushText("")

	default:
		t.walkInline(n)
	}
}

func (t *domTokenizer) walkInline(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		t.buf.WriteString(html.EscapeString(n.Data))
		return
	case html.ElementNode:
	default:
		return
	}

	tag := dom.TagName(n)
	switch tag {
	case "style":
		t.flushText("")
		t.segs = append(t.segs, segment{Kind: segStyle, CSS: dom.TextContent(n)})
		return

	case "img":
		t.flushText("")
		t.segs = append(t.segs, segment{
			Kind: segImage,
			Src:  dom.GetAttribute(n, "src"),
			Alt:  dom.GetAttribute(n, "alt"),
		})
		return

	case "iframe":
		t.flushText("")
		t.segs = append(t.segs, segment{Kind: segIframe, FrameSrc: dom.GetAttribute(n, "src")})
		return

	case "a":
		actionID := dom.GetAttribute(n, attrActionID)
		if actionID != "" {
			actionType := dom.GetAttribute(n, attrActionType)
			label := strings.TrimSpace(dom.TextContent(n))
			switch {
			case actionType == actionTypeMedia:
				t.flushText("")
				t.segs = append(t.segs, segment{Kind: segActionAnchor, ActionID: actionID, Label: label})
				return
			case actionType == actionTypeNavigate && anchorStyledAsButton(n):
				t.flushText("")
				t.segs = append(t.segs, segment{Kind: segNavAnchor, ActionID: actionID, Label: label})
				return
			case actionType == actionTypeNavigate:
				// Plain link: keep inline, defer the href rewrite.
				tok := newNavToken(actionID)
				dom.SetAttribute(n, "href", tok.Token)
				t.navTokens = append(t.navTokens, tok)
				t.buf.WriteString(dom.OuterHTML(n))
				return
			}
		}
	}

	if hasSpecialDescendant(n) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			t.walkInline(c)
		}
		return
	}
	t.buf.WriteString(dom.OuterHTML(n))
}

func anchorStyledAsButton(n *html.Node) bool {
	return classHasButton(dom.GetAttribute(n, "class"))
}

// hasSpecialDescendant reports whether the subtree contains an element that
// must become its own segment.
func hasSpecialDescendant(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			switch dom.TagName(c) {
			case "img", "iframe", "style", "figure":
				return true
			case "a":
				if dom.GetAttribute(c, attrActionID) != "" {
					return true
				}
			}
			if hasSpecialDescendant(c) {
				return true
			}
		}
	}
	return false
}
