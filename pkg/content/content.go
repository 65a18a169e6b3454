// Package content converts ordered fragments of legacy rich markup into
// ordered graph nodes. Two engines share one contract: a DOM walk for
// environments with a full HTML parser and a regex tokenizer fallback. Both
// engines only tokenize markup into a shared segment stream; a single emit
// pipeline turns segments into builder nodes, so the engines cannot disagree
// about node order.
package content

import (
	"github.com/atlastales/storygraph/pkg/story"
)

// Legacy markup attributes that wire anchors to declared actions.
const (
	attrActionID   = "data-storymaps"
	attrActionType = "data-storymaps-type"

	actionTypeMedia    = "media"
	actionTypeNavigate = "navigate"
)

// Parser converts one markup fragment into ordered graph nodes appended to
// the builder, recording results in out. Implementations must produce the
// same node sequence for the same fragment.
type Parser interface {
	Name() string
	Parse(b *story.Builder, fragment string, opts Options, out *Output) error
}

// Options configure a parse run.
type Options struct {
	// ResolveCompare turns an embedded legacy compare-app reference into
	// inline comparison nodes, returning the node ids to splice into the
	// stream. When nil, embedded compare iframes degrade to generic embeds.
	ResolveCompare func(b *story.Builder, appID string) ([]string, error)
}

// Output accumulates the results of one or more parse runs: the ordered node
// id list, pending action stubs awaiting resolution against the legacy
// document's declared actions, extracted style blocks, and every media URL
// the fragment references.
type Output struct {
	NodeIDs []string

	MediaStubs []MediaStub
	NavStubs   []NavStub

	StyleBlocks []string
	Media       []string
}

// MediaStub is a pending "replace media" wiring: an action-button node that
// still needs an Action attached once the legacy action payload is known.
type MediaStub struct {
	ActionID string
	Button   string
}

// NavStub is a pending navigation rewrite. Styled anchors become standalone
// button nodes; plain links stay inline inside a text node, with a
// placeholder token in the href that is replaced once the target heading node
// is known.
type NavStub struct {
	ActionID string
	Node     string
	Inline   bool
	Token    string
}

func (o *Output) addMedia(url string) {
	if url == "" {
		return
	}
	for _, have := range o.Media {
		if have == url {
			return
		}
	}
	o.Media = append(o.Media, url)
}

// NewParser returns the engine registered under name, defaulting to the DOM
// engine for unknown names.
func NewParser(name string) Parser {
	if name == "regex" {
		return &RegexEngine{}
	}
	return &DOMEngine{}
}
