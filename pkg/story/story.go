package story

import (
	"bytes"
	"encoding/json"
)

type NodeType string

const (
	NodeTypeStory          NodeType = "story"
	NodeTypeCover          NodeType = "storycover"
	NodeTypeNavigation     NodeType = "navigation"
	NodeTypeCredits        NodeType = "credits"
	NodeTypeText           NodeType = "text"
	NodeTypeImage          NodeType = "image"
	NodeTypeVideo          NodeType = "video"
	NodeTypeEmbed          NodeType = "embed"
	NodeTypeWebMap         NodeType = "webmap"
	NodeTypeSwipe          NodeType = "swipe"
	NodeTypeActionButton   NodeType = "action-button"
	NodeTypeButton         NodeType = "button"
	NodeTypeImmersive      NodeType = "immersive"
	NodeTypeImmersiveSlide NodeType = "immersive-slide"
	NodeTypeNarrativePanel NodeType = "immersive-narrative-panel"
	NodeTypeTour           NodeType = "tour"
	NodeTypeTourStop       NodeType = "tour-stop"
	NodeTypeTourMap        NodeType = "tour-map"
	NodeTypeCarousel       NodeType = "carousel"
)

// containerTypes lists the node types that own ordered children.
var containerTypes = map[NodeType]bool{
	NodeTypeStory:          true,
	NodeTypeNavigation:     true,
	NodeTypeSwipe:          true,
	NodeTypeImmersive:      true,
	NodeTypeImmersiveSlide: true,
	NodeTypeNarrativePanel: true,
	NodeTypeTour:           true,
	NodeTypeTourStop:       true,
	NodeTypeCarousel:       true,
}

type ResourceType string

const (
	ResourceTypeTheme             ResourceType = "story-theme"
	ResourceTypeImage             ResourceType = "image"
	ResourceTypeVideo             ResourceType = "video"
	ResourceTypeWebMap            ResourceType = "webmap"
	ResourceTypeWebScene          ResourceType = "webscene"
	ResourceTypeConverterMetadata ResourceType = "classic-converter"
)

// Resource variants for webmap/webscene resources. A minimal resource carries
// only the item identifier and is awaiting enrichment.
const (
	VariantMinimal = "minimal"
	VariantDefault = "default"
)

// Data is a type-specific node or resource payload.
type Data map[string]any

// Config carries presentation hints such as size or alignment.
type Config map[string]any

// Node is a typed unit of the output graph. Container types own an ordered
// list of child node ids; leaf nodes reference resources by id through their
// Data payload.
type Node struct {
	Type     NodeType `json:"type"`
	Data     Data     `json:"data,omitempty"`
	Config   Config   `json:"config,omitempty"`
	Children []string `json:"children,omitempty"`
}

// IsContainer reports whether the node type owns ordered children.
func (n *Node) IsContainer() bool {
	return containerTypes[n.Type]
}

// Resource is a typed, de-duplicated referenceable object. Resources are not
// part of the parent/child node tree; nodes reference them by id.
type Resource struct {
	Type    ResourceType `json:"type"`
	Variant string       `json:"variant,omitempty"`
	Data    Data         `json:"data,omitempty"`
}

// Action links an origin node (typically an action button) to a target
// container node with a trigger name and a data payload, e.g. "replace the
// media child of this container with resource X".
type Action struct {
	Origin  string `json:"origin"`
	Trigger string `json:"trigger"`
	Target  string `json:"target"`
	Data    Data   `json:"data,omitempty"`
}

// Triggers for cross-node actions.
const (
	TriggerReplaceMedia = "replace-media"
	TriggerNavigate     = "navigate"
)

// Document is the finished output graph: a root id, the node map, the
// resource map and the action list. It serializes with exactly these four
// top-level keys, iterating nodes in construction order with the root node
// last and resources in construction order.
type Document struct {
	Root      string
	Nodes     map[string]*Node
	Resources map[string]*Resource
	Actions   []Action

	nodeOrder     []string
	resourceOrder []string
}

// NodeOrder returns the serialization order of node ids. The root id is
// always last.
func (d *Document) NodeOrder() []string {
	out := make([]string, len(d.nodeOrder))
	copy(out, d.nodeOrder)
	return out
}

// ResourceOrder returns the serialization order of resource ids.
func (d *Document) ResourceOrder() []string {
	out := make([]string, len(d.resourceOrder))
	copy(out, d.resourceOrder)
	return out
}

// MarshalJSON writes the document with its four top-level keys, preserving
// node and resource iteration order.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"root":`)
	if err := writeJSON(&buf, d.Root); err != nil {
		return nil, err
	}

	buf.WriteString(`,"nodes":`)
	if err := writeOrderedMap(&buf, d.nodeOrder, func(id string) any { return d.Nodes[id] }); err != nil {
		return nil, err
	}

	buf.WriteString(`,"resources":`)
	if err := writeOrderedMap(&buf, d.resourceOrder, func(id string) any { return d.Resources[id] }); err != nil {
		return nil, err
	}

	buf.WriteString(`,"actions":`)
	actions := d.Actions
	if actions == nil {
		actions = []Action{}
	}
	if err := writeJSON(&buf, actions); err != nil {
		return nil, err
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(data)
	return nil
}

func writeOrderedMap(buf *bytes.Buffer, order []string, value func(string) any) error {
	buf.WriteByte('{')
	for i, id := range order {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSON(buf, id); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := writeJSON(buf, value(id)); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}
