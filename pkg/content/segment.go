package content

import (
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/atlastales/storygraph/pkg/story"
)

type segmentKind int

const (
	segStyle segmentKind = iota
	segImage
	segActionAnchor
	segNavAnchor
	segIframe
	segText
)

// navToken marks a plain navigation link left inline in a text segment. The
// href carries the token until the target heading node is known.
type navToken struct {
	ActionID string
	Token    string
}

// segment is one tokenized slice of the source fragment, in source order.
// Engines produce segments; emitSegments turns them into nodes.
type segment struct {
	Kind segmentKind

	// segStyle
	CSS string

	// segImage
	Src     string
	Alt     string
	Caption string

	// segActionAnchor / segNavAnchor
	ActionID string
	Label    string

	// segIframe
	FrameSrc string

	// segText
	HTML      string
	NavTokens []navToken
}

const navTokenPrefix = "#storygraph-nav:"

func newNavToken(actionID string) navToken {
	return navToken{
		ActionID: actionID,
		Token:    navTokenPrefix + actionID,
	}
}

// emitSegments converts a tokenized segment stream into graph nodes, in
// order. This is the single emit path shared by both engines.
func emitSegments(b *story.Builder, segs []segment, opts Options, out *Output) error {
	for _, seg := range segs {
		switch seg.Kind {
		case segStyle:
			if css := strings.TrimSpace(seg.CSS); css != "" {
				out.StyleBlocks = append(out.StyleBlocks, css)
			}

		case segImage:
			if seg.Src == "" {
				continue
			}
			if _, err := emitImage(b, seg.Src, seg.Alt, seg.Caption, out); err != nil {
				return err
			}

		case segActionAnchor:
			id, err := b.AddNode(story.NodeTypeActionButton, story.Data{"text": seg.Label}, nil)
			if err != nil {
				return err
			}
			out.NodeIDs = append(out.NodeIDs, id)
			out.MediaStubs = append(out.MediaStubs, MediaStub{ActionID: seg.ActionID, Button: id})

		case segNavAnchor:
			id, err := b.AddNode(story.NodeTypeButton, story.Data{"text": seg.Label}, nil)
			if err != nil {
				return err
			}
			out.NodeIDs = append(out.NodeIDs, id)
			out.NavStubs = append(out.NavStubs, NavStub{ActionID: seg.ActionID, Node: id})

		case segIframe:
			if err := emitIframe(b, seg.FrameSrc, opts, out); err != nil {
				return err
			}

		case segText:
			if err := emitText(b, seg, out); err != nil {
				return err
			}
		}
	}
	return nil
}

func emitImage(b *story.Builder, src, alt, caption string, out *Output) (string, error) {
	res, err := b.AddResource(story.ResourceTypeImage, story.Data{"src": src, "alt": alt})
	if err != nil {
		return "", err
	}
	data := story.Data{"image": res}
	if caption != "" {
		data["caption"] = caption
	}
	if alt != "" {
		data["alt"] = alt
	}
	id, err := b.AddNode(story.NodeTypeImage, data, nil)
	if err != nil {
		return "", err
	}
	out.NodeIDs = append(out.NodeIDs, id)
	out.addMedia(src)
	return id, nil
}

func emitIframe(b *story.Builder, src string, opts Options, out *Output) error {
	if src == "" {
		return nil
	}

	if appID, ok := compareAppID(src); ok && opts.ResolveCompare != nil {
		ids, err := opts.ResolveCompare(b, appID)
		if err == nil && len(ids) > 0 {
			out.NodeIDs = append(out.NodeIDs, ids...)
			return nil
		}
		// Unresolvable nested compare apps degrade to a generic embed.
	}

	if videoProviderURL(src) {
		id, err := b.AddNode(story.NodeTypeVideo, story.Data{"url": src}, nil)
		if err != nil {
			return err
		}
		out.NodeIDs = append(out.NodeIDs, id)
		out.addMedia(src)
		return nil
	}

	id, err := b.AddNode(story.NodeTypeEmbed, story.Data{"url": src, "embedType": "link"}, nil)
	if err != nil {
		return err
	}
	out.NodeIDs = append(out.NodeIDs, id)
	return nil
}

func emitText(b *story.Builder, seg segment, out *Output) error {
	blocks := splitTextBlocks(seg.HTML)
	for _, block := range blocks {
		keep := !emptySegment(block)
		var tokens []navToken
		for _, tok := range seg.NavTokens {
			if strings.Contains(block, tok.Token) {
				tokens = append(tokens, tok)
				keep = true
			}
		}
		if !keep {
			continue
		}

		text := rewriteInlineColors(block)
		id, err := b.AddNode(story.NodeTypeText, story.Data{"type": "paragraph", "text": text}, nil)
		if err != nil {
			return err
		}
		out.NodeIDs = append(out.NodeIDs, id)
		for _, tok := range tokens {
			out.NavStubs = append(out.NavStubs, NavStub{
				ActionID: tok.ActionID,
				Node:     id,
				Inline:   true,
				Token:    tok.Token,
			})
		}
	}
	return nil
}

var (
	reSubBlock  = regexp.MustCompile(`(?is)<p[^>]*>.*?</p>|<h[1-6][^>]*>.*?</h[1-6]>`)
	reStripTags = regexp.MustCompile(`<[^>]+>`)
	reNbsp      = regexp.MustCompile(`(?i)&nbsp;|\x{00a0}`)
)

// splitTextBlocks splits a fragment containing multiple paragraph sub-blocks
// into one slice entry per sub-block. Fragments without sub-blocks are
// returned whole.
func splitTextBlocks(fragment string) []string {
	matches := reSubBlock.FindAllStringIndex(fragment, -1)
	if len(matches) == 0 {
		return []string{fragment}
	}

	var blocks []string
	cursor := 0
	for _, m := range matches {
		if lead := fragment[cursor:m[0]]; strings.TrimSpace(lead) != "" {
			blocks = append(blocks, lead)
		}
		blocks = append(blocks, fragment[m[0]:m[1]])
		cursor = m[1]
	}
	if tail := fragment[cursor:]; strings.TrimSpace(tail) != "" {
		blocks = append(blocks, tail)
	}
	return blocks
}

// emptySegment reports whether a markup slice carries no visible content
// after tags are stripped and non-breaking spaces normalized.
func emptySegment(fragment string) bool {
	text := reStripTags.ReplaceAllString(fragment, "")
	text = reNbsp.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)
	text = strings.ReplaceAll(text, " ", " ")
	return strings.TrimSpace(text) == ""
}

var videoHosts = []string{
	"youtube.com",
	"youtube-nocookie.com",
	"youtu.be",
	"vimeo.com",
	"player.vimeo.com",
	"dailymotion.com",
}

// videoProviderURL reports whether the URL points at a known video provider
// embed.
func videoProviderURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, provider := range videoHosts {
		if host == provider || strings.HasSuffix(host, "."+provider) {
			return true
		}
	}
	return false
}

// compareAppID extracts the application id from an embedded legacy
// compare-view URL. Recognized URLs contain a swipe app path and an appid (or
// webmap pair) query parameter.
func compareAppID(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	path := strings.ToLower(u.Path)
	if !strings.Contains(path, "swipe") && !strings.Contains(path, "compare") {
		return "", false
	}
	q := u.Query()
	for _, key := range []string{"appid", "appID", "webmap"} {
		if v := q.Get(key); v != "" {
			return v, true
		}
	}
	return "", false
}

// classHasButton reports whether a class attribute marks an anchor as styled
// like a button. Shared by both engines so they agree on the distinction.
func classHasButton(class string) bool {
	for _, c := range strings.Fields(class) {
		if c == "btn" || strings.HasPrefix(c, "btn-") {
			return true
		}
	}
	return false
}

// NavTokenFor returns the inline href placeholder for a legacy navigate
// action id, so callers can rewrite it once the target heading is known.
func NavTokenFor(actionID string) string {
	return navTokenPrefix + actionID
}

// HeadingAnchor is the stable anchor-id convention for section headings:
// navigation rewrites point at "#" + HeadingAnchor(nodeID).
func HeadingAnchor(nodeID string) string {
	return fmt.Sprintf("n-%s", nodeID)
}
