package content

import (
	"html"
	"regexp"
	"strings"

	"github.com/atlastales/storygraph/pkg/story"
)

// RegexEngine tokenizes markup with precompiled regular expressions. It is
// the fallback for environments without a DOM parser and shares the emit
// pipeline with the DOM engine, so both produce the same node sequence for
// the markup shapes the legacy templates emit. Deeply nested block markup is
// the DOM engine's job.
type RegexEngine struct{}

func (e *RegexEngine) Name() string { return "regex" }

func (e *RegexEngine) Parse(b *story.Builder, fragment string, opts Options, out *Output) error {
	t := &regexTokenizer{}
	t.scanBlocks(fragment)
	t.flushText()
	return emitSegments(b, t.segs, opts, out)
}

var (
	reTokBlock = regexp.MustCompile(`(?is)` +
		`<style[^>]*>.*?</style>` +
		`|<figure[^>]*>.*?</figure>` +
		`|<iframe[^>]*>.*?</iframe>` +
		`|<iframe[^>]*/>` +
		`|<p[^>]*>.*?</p>` +
		`|<div[^>]*>.*?</div>` +
		`|<h[1-6][^>]*>.*?</h[1-6]>` +
		`|<blockquote[^>]*>.*?</blockquote>` +
		`|<section[^>]*>.*?</section>` +
		`|<article[^>]*>.*?</article>` +
		`|<ul[^>]*>.*?</ul>` +
		`|<ol[^>]*>.*?</ol>` +
		`|<table[^>]*>.*?</table>` +
		`|<pre[^>]*>.*?</pre>` +
		`|<img[^>]*>`)

	reTokInline = regexp.MustCompile(`(?is)` +
		`<style[^>]*>.*?</style>` +
		`|<img[^>]*>` +
		`|<iframe[^>]*>.*?</iframe>` +
		`|<iframe[^>]*/>` +
		`|<a[^>]*\bdata-storymaps\b[^>]*>.*?</a>`)

	reStyleInner   = regexp.MustCompile(`(?is)<style[^>]*>(.*?)</style>`)
	reFigcaption   = regexp.MustCompile(`(?is)<figcaption[^>]*>(.*?)</figcaption>`)
	reFirstImg     = regexp.MustCompile(`(?i)<img[^>]*>`)
	reHrefAttr     = regexp.MustCompile(`(?i)\bhref\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`)
	reAnchorInner  = regexp.MustCompile(`(?is)<a[^>]*>(.*?)</a>`)
	reSpecialProbe = regexp.MustCompile(`(?is)<img\b|<iframe\b|<style\b|<figure\b|<a[^>]*\bdata-storymaps\b`)

	attrExtractors = map[string]*regexp.Regexp{}
)

func init() {
	for _, name := range []string{"src", "alt", "class", attrActionID, attrActionType} {
		attrExtractors[name] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(name) + `\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`)
	}
}

func attrValue(tag, name string) string {
	re, ok := attrExtractors[name]
	if !ok {
		return ""
	}
	m := re.FindStringSubmatch(tag)
	if m == nil {
		return ""
	}
	return html.UnescapeString(strings.Trim(m[1], `"'`))
}

type regexTokenizer struct {
	segs      []segment
	buf       strings.Builder
	navTokens []navToken
}

func (t *regexTokenizer) flushText() {
	raw := t.buf.String()
	t.buf.Reset()
	tokens := t.navTokens
	t.navTokens = nil

	if strings.TrimSpace(raw) == "" && len(tokens) == 0 {
		return
	}
	t.segs = append(t.segs, segment{Kind: segText, HTML: raw, NavTokens: tokens})
}

func (t *regexTokenizer) scanBlocks(fragment string) {
	cursor := 0
	for _, m := range reTokBlock.FindAllStringIndex(fragment, -1) {
		if m[0] > cursor {
			t.scanInline(fragment[cursor:m[0]])
		}
		t.block(fragment[m[0]:m[1]])
		cursor = m[1]
	}
	if cursor < len(fragment) {
		t.scanInline(fragment[cursor:])
	}
}

func (t *regexTokenizer) block(token string) {
	lower := strings.ToLower(token)
	switch {
	case strings.HasPrefix(lower, "<style"):
		t.flushText()
		if m := reStyleInner.FindStringSubmatch(token); m != nil {
			t.segs = append(t.segs, segment{Kind: segStyle, CSS: m[1]})
		}

	case strings.HasPrefix(lower, "<figure"):
		t.flushText()
		img := reFirstImg.FindString(token)
		if img == "" {
			return
		}
		caption := ""
		if m := reFigcaption.FindStringSubmatch(token); m != nil {
			caption = strings.TrimSpace(html.UnescapeString(reStripTags.ReplaceAllString(m[1], "")))
		}
		t.segs = append(t.segs, segment{
			Kind:    segImage,
			Src:     attrValue(img, "src"),
			Alt:     attrValue(img, "alt"),
			Caption: caption,
		})

	case strings.HasPrefix(lower, "<iframe"):
		t.flushText()
		t.segs = append(t.segs, segment{Kind: segIframe, FrameSrc: attrValue(token, "src")})

	case strings.HasPrefix(lower, "<img"):
		t.flushText()
		t.segs = append(t.segs, segment{
			Kind: segImage,
			Src:  attrValue(token, "src"),
			Alt:  attrValue(token, "alt"),
		})

	default:
		// Paragraph-shaped block.
		t.flushText()
		if !reSpecialProbe.MatchString(token) {
			t.buf.WriteString(token)
			t.flushText()
			return
		}
		t.scanInline(stripOuterBlockTag(token))
		t.flushText()
	}
}

func (t *regexTokenizer) scanInline(markup string) {
	cursor := 0
	for _, m := range reTokInline.FindAllStringIndex(markup, -1) {
		t.buf.WriteString(markup[cursor:m[0]])
		t.inline(markup[m[0]:m[1]])
		cursor = m[1]
	}
	t.buf.WriteString(markup[cursor:])
}

func (t *regexTokenizer) inline(token string) {
	lower := strings.ToLower(token)
	switch {
	case strings.HasPrefix(lower, "<style"):
		t.flushText()
		if m := reStyleInner.FindStringSubmatch(token); m != nil {
			t.segs = append(t.segs, segment{Kind: segStyle, CSS: m[1]})
		}

	case strings.HasPrefix(lower, "<img"):
		t.flushText()
		t.segs = append(t.segs, segment{
			Kind: segImage,
			Src:  attrValue(token, "src"),
			Alt:  attrValue(token, "alt"),
		})

	case strings.HasPrefix(lower, "<iframe"):
		t.flushText()
		t.segs = append(t.segs, segment{Kind: segIframe, FrameSrc: attrValue(token, "src")})

	case strings.HasPrefix(lower, "<a"):
		actionID := attrValue(token, attrActionID)
		actionType := attrValue(token, attrActionType)
		label := anchorLabel(token)
		switch {
		case actionType == actionTypeMedia:
			t.flushText()
			t.segs = append(t.segs, segment{Kind: segActionAnchor, ActionID: actionID, Label: label})
		case actionType == actionTypeNavigate && classHasButton(attrValue(token, "class")):
			t.flushText()
			t.segs = append(t.segs, segment{Kind: segNavAnchor, ActionID: actionID, Label: label})
		case actionType == actionTypeNavigate:
			tok := newNavToken(actionID)
			t.navTokens = append(t.navTokens, tok)
			t.buf.WriteString(rewriteAnchorHref(token, tok.Token))
		default:
			t.buf.WriteString(token)
		}
	}
}

func anchorLabel(anchor string) string {
	m := reAnchorInner.FindStringSubmatch(anchor)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(reStripTags.ReplaceAllString(m[1], "")))
}

func rewriteAnchorHref(anchor, href string) string {
	if reHrefAttr.MatchString(anchor) {
		return reHrefAttr.ReplaceAllString(anchor, `href="`+href+`"`)
	}
	return strings.Replace(anchor, "<a", `<a href="`+href+`"`, 1)
}

var reOuterBlockTag = regexp.MustCompile(`(?is)^<[a-z][a-z0-9]*[^>]*>(.*)</[a-z][a-z0-9]*>$`)

func stripOuterBlockTag(token string) string {
	if m := reOuterBlockTag.FindStringSubmatch(token); m != nil {
		return m[1]
	}
	return token
}
