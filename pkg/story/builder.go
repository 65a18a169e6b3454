package story

import (
	"errors"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	idAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	idLength   = 8

	maxIDAttempts = 16
)

// ErrIDCollision is returned when the id generator cannot produce a unique id.
// With an 8-character alphanumeric alphabet this only happens if the random
// source is broken.
var ErrIDCollision = errors.New("story: id collision limit exceeded")

// ErrNoRoot is returned by Export when no story root node was created.
var ErrNoRoot = errors.New("story: document has no root node")

// Builder owns the in-memory output document during a single conversion run.
// All mutation goes through Builder methods; Export hands off the finished
// Document.
//
// Mutating a non-existent node or resource id is a no-op, not an error. This
// tolerates best-effort enrichment attempts racing against partial builds.
type Builder struct {
	root          string
	nodes         map[string]*Node
	nodeOrder     []string
	resources     map[string]*Resource
	resourceOrder []string
	actions       []Action

	seen map[string]struct{}

	themeID    string
	metadataID string
	metadata   *ConverterMetadata
}

// NewBuilder creates an empty builder seeded with one theme resource.
func NewBuilder() (*Builder, error) {
	b := &Builder{
		nodes:     make(map[string]*Node),
		resources: make(map[string]*Resource),
		seen:      make(map[string]struct{}),
	}

	themeID, err := b.AddResource(ResourceTypeTheme, Data{"themeId": DefaultThemeID})
	if err != nil {
		return nil, err
	}
	b.themeID = themeID

	return b, nil
}

func (b *Builder) newID() (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id, err := gonanoid.Generate(idAlphabet, idLength)
		if err != nil {
			return "", fmt.Errorf("failed to generate id: %w", err)
		}
		if _, dup := b.seen[id]; dup {
			continue
		}
		b.seen[id] = struct{}{}
		return id, nil
	}
	return "", ErrIDCollision
}

// CreateRoot creates the story root node and returns its id. Calling it again
// returns the existing root id.
func (b *Builder) CreateRoot(data Data) (string, error) {
	if b.root != "" {
		return b.root, nil
	}
	id, err := b.AddNode(NodeTypeStory, data, nil)
	if err != nil {
		return "", err
	}
	b.root = id
	return id, nil
}

// Root returns the story root node id, or "" if none was created yet.
func (b *Builder) Root() string {
	return b.root
}

// AddNode creates a typed node and returns its id. Children may reference
// ids created earlier; unknown child ids are dropped at Export.
func (b *Builder) AddNode(t NodeType, data Data, config Config, children ...string) (string, error) {
	id, err := b.newID()
	if err != nil {
		return "", err
	}
	b.nodes[id] = &Node{
		Type:     t,
		Data:     data,
		Config:   config,
		Children: children,
	}
	b.nodeOrder = append(b.nodeOrder, id)
	return id, nil
}

// AddResource creates a typed resource and returns its id.
func (b *Builder) AddResource(t ResourceType, data Data) (string, error) {
	id, err := b.newID()
	if err != nil {
		return "", err
	}
	b.resources[id] = &Resource{Type: t, Data: data}
	b.resourceOrder = append(b.resourceOrder, id)
	return id, nil
}

// AddMinimalResource creates a placeholder webmap/webscene resource carrying
// only its item identity, pending enrichment.
func (b *Builder) AddMinimalResource(t ResourceType, itemID string) (string, error) {
	id, err := b.AddResource(t, Data{"itemId": itemID, "itemType": string(t)})
	if err != nil {
		return "", err
	}
	b.resources[id].Variant = VariantMinimal
	return id, nil
}

// Node returns the node with the given id, or nil.
func (b *Builder) Node(id string) *Node {
	return b.nodes[id]
}

// Resource returns the resource with the given id, or nil.
func (b *Builder) Resource(id string) *Resource {
	return b.resources[id]
}

// ThemeResourceID returns the id of the seeded theme resource.
func (b *Builder) ThemeResourceID() string {
	return b.themeID
}

// MinimalResources returns the ids of all placeholder webmap/webscene
// resources still awaiting enrichment, in creation order.
func (b *Builder) MinimalResources() []string {
	var ids []string
	for _, id := range b.resourceOrder {
		r := b.resources[id]
		if r.Variant != VariantMinimal {
			continue
		}
		if r.Type == ResourceTypeWebMap || r.Type == ResourceTypeWebScene {
			ids = append(ids, id)
		}
	}
	return ids
}

// AppendChild appends child to parent's children list. No-op when either id
// does not exist.
func (b *Builder) AppendChild(parent, child string) {
	p, ok := b.nodes[parent]
	if !ok {
		return
	}
	if _, ok := b.nodes[child]; !ok {
		return
	}
	p.Children = append(p.Children, child)
}

// UpdateNodeData applies mutate to the node's data payload, creating the
// payload map if needed. No-op when the node does not exist.
func (b *Builder) UpdateNodeData(id string, mutate func(Data)) {
	n, ok := b.nodes[id]
	if !ok {
		return
	}
	if n.Data == nil {
		n.Data = Data{}
	}
	mutate(n.Data)
}

// UpdateResourceData applies mutate to the resource's data payload, creating
// the payload map if needed. No-op when the resource does not exist.
func (b *Builder) UpdateResourceData(id string, mutate func(Data)) {
	r, ok := b.resources[id]
	if !ok {
		return
	}
	if r.Data == nil {
		r.Data = Data{}
	}
	mutate(r.Data)
}

// SetResourceVariant marks a resource as minimal or default. No-op when the
// resource does not exist.
func (b *Builder) SetResourceVariant(id, variant string) {
	r, ok := b.resources[id]
	if !ok {
		return
	}
	r.Variant = variant
}

// AddAction records a cross-node action.
func (b *Builder) AddAction(origin, trigger, target string, data Data) {
	b.actions = append(b.actions, Action{
		Origin:  origin,
		Trigger: trigger,
		Target:  target,
		Data:    data,
	})
}

// RemoveNode detaches the node from every parent's children list, drops the
// actions that reference it and deletes it. No-op when the id does not exist.
func (b *Builder) RemoveNode(id string) {
	if _, ok := b.nodes[id]; !ok {
		return
	}

	for _, n := range b.nodes {
		if len(n.Children) == 0 {
			continue
		}
		kept := n.Children[:0]
		for _, c := range n.Children {
			if c != id {
				kept = append(kept, c)
			}
		}
		n.Children = kept
	}

	kept := b.actions[:0]
	for _, a := range b.actions {
		if a.Origin != id && a.Target != id {
			kept = append(kept, a)
		}
	}
	b.actions = kept

	delete(b.nodes, id)
	for i, nid := range b.nodeOrder {
		if nid == id {
			b.nodeOrder = append(b.nodeOrder[:i], b.nodeOrder[i+1:]...)
			break
		}
	}
	if b.root == id {
		b.root = ""
	}
}

// Export normalizes and snapshots the document. The builder must not be
// mutated afterwards.
//
// Normalization: webmap nodes get a default config size, text nodes a default
// alignment, any stray metaSettings on the root data is removed, unknown
// child references are dropped and the root node is moved to the end of the
// node iteration order (a consumer compatibility requirement).
func (b *Builder) Export() (*Document, error) {
	if b.root == "" {
		return nil, ErrNoRoot
	}

	doc := &Document{
		Root:      b.root,
		Nodes:     make(map[string]*Node, len(b.nodes)),
		Resources: make(map[string]*Resource, len(b.resources)),
		Actions:   append([]Action(nil), b.actions...),
	}

	for id, n := range b.nodes {
		doc.Nodes[id] = copyNode(n)
	}
	for id, r := range b.resources {
		doc.Resources[id] = copyResource(r)
	}

	for _, n := range doc.Nodes {
		switch n.Type {
		case NodeTypeWebMap:
			if n.Config == nil {
				n.Config = Config{}
			}
			if _, ok := n.Config["size"]; !ok {
				n.Config["size"] = DefaultWebMapSize
			}
		case NodeTypeText:
			if n.Data == nil {
				n.Data = Data{}
			}
			if _, ok := n.Data["textAlignment"]; !ok {
				n.Data["textAlignment"] = DefaultTextAlignment
			}
		}

		if len(n.Children) > 0 {
			kept := n.Children[:0]
			for _, c := range n.Children {
				if _, ok := doc.Nodes[c]; ok {
					kept = append(kept, c)
				}
			}
			n.Children = kept
		}
	}

	// metaSettings is an authoring-time surface only, never final output.
	delete(doc.Nodes[doc.Root].Data, "metaSettings")

	doc.nodeOrder = make([]string, 0, len(b.nodeOrder))
	for _, id := range b.nodeOrder {
		if id != b.root {
			doc.nodeOrder = append(doc.nodeOrder, id)
		}
	}
	doc.nodeOrder = append(doc.nodeOrder, b.root)

	doc.resourceOrder = append([]string(nil), b.resourceOrder...)

	return doc, nil
}

// Defaults applied during Export.
const (
	DefaultThemeID       = "summit"
	DefaultWebMapSize    = "standard"
	DefaultTextAlignment = "start"
)

func copyNode(n *Node) *Node {
	return &Node{
		Type:     n.Type,
		Data:     copyData(n.Data),
		Config:   Config(copyData(Data(n.Config))),
		Children: append([]string(nil), n.Children...),
	}
}

func copyResource(r *Resource) *Resource {
	return &Resource{
		Type:    r.Type,
		Variant: r.Variant,
		Data:    copyData(r.Data),
	}
}

func copyData(d Data) Data {
	if d == nil {
		return nil
	}
	out := make(Data, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
