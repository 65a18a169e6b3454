package convert

import (
	"context"
	"strings"
	"testing"

	"github.com/atlastales/storygraph/pkg/fetch"
	"github.com/atlastales/storygraph/pkg/story"
)

func nodesOfType(doc *story.Document, t story.NodeType) []*story.Node {
	var out []*story.Node
	for _, id := range doc.NodeOrder() {
		if n := doc.Nodes[id]; n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

func resourcesOfType(doc *story.Document, t story.ResourceType) []*story.Resource {
	var out []*story.Resource
	for _, id := range doc.ResourceOrder() {
		if r := doc.Resources[id]; r.Type == t {
			out = append(out, r)
		}
	}
	return out
}

const journalRaw = `{
	"values": {
		"template": "MapJournal",
		"title": "Glacier Walks",
		"story": {"sections": [
			{
				"title": "Intro",
				"content": "<p>Welcome to the <a data-storymaps=\"a1\" data-storymaps-type=\"media\">bay</a></p>",
				"media": {"type": "webmap", "webmap": {"id": "m1"}},
				"contentActions": [
					{"id": "a1", "type": "media", "media": {"type": "image", "image": {"url": "https://img.example.com/bay.jpg"}}}
				]
			},
			{
				"title": "Looking Back",
				"content": "<p>Return to the <a data-storymaps=\"n1\" data-storymaps-type=\"navigate\">intro</a>.</p>",
				"contentActions": [
					{"id": "n1", "type": "navigate", "index": 0}
				]
			}
		]}
	}
}`

func TestConvertJournal(t *testing.T) {
	res, err := Convert(context.Background(), []byte(journalRaw), Options{})
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	if len(res.Documents) != 1 {
		t.Fatalf("got %d documents, want 1", len(res.Documents))
	}
	doc := res.Documents[0]
	if doc.Root == "" || doc.Nodes[doc.Root].Type != story.NodeTypeStory {
		t.Fatal("document has no story root")
	}

	slides := nodesOfType(doc, story.NodeTypeImmersiveSlide)
	if len(slides) != 2 {
		t.Fatalf("got %d slides, want 2", len(slides))
	}

	// The media action becomes a replace-media Action targeting the slide.
	var replace *story.Action
	for i := range doc.Actions {
		if doc.Actions[i].Trigger == story.TriggerReplaceMedia {
			replace = &doc.Actions[i]
		}
	}
	if replace == nil {
		t.Fatal("no replace-media action wired")
	}
	altID, _ := replace.Data["media"].(string)
	if alt := doc.Nodes[altID]; alt == nil || alt.Type != story.NodeTypeImage {
		t.Errorf("replace-media target %q is not an image node", altID)
	}
	if target := doc.Nodes[replace.Target]; target == nil || target.Type != story.NodeTypeImmersiveSlide {
		t.Errorf("action target %q is not a slide", replace.Target)
	}

	// The inline navigate link is rewritten to the heading anchor.
	rewritten := false
	for _, n := range nodesOfType(doc, story.NodeTypeText) {
		if text, _ := n.Data["text"].(string); strings.Contains(text, `"#n-`) {
			rewritten = true
		}
	}
	if !rewritten {
		t.Error("inline navigate link was not rewritten to a heading anchor")
	}

	// The webmap stays a minimal placeholder without a fetcher.
	maps := resourcesOfType(doc, story.ResourceTypeWebMap)
	if len(maps) != 1 || maps[0].Variant != story.VariantMinimal {
		t.Errorf("webmap resources = %+v, want one minimal placeholder", maps)
	}

	found := false
	for _, u := range res.Media {
		if u == "https://img.example.com/bay.jpg" {
			found = true
		}
	}
	if !found {
		t.Errorf("media list %v is missing the action image", res.Media)
	}

	if got := resourcesOfType(doc, story.ResourceTypeConverterMetadata); len(got) != 1 {
		t.Fatalf("got %d converter metadata resources, want 1", len(got))
	}
}

func TestConvertSuppressMetadata(t *testing.T) {
	res, err := Convert(context.Background(), []byte(journalRaw), Options{SuppressMetadata: true})
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	doc := res.Documents[0]
	if got := resourcesOfType(doc, story.ResourceTypeConverterMetadata); len(got) != 0 {
		t.Errorf("got %d converter metadata resources, want 0", len(got))
	}
}

func TestConvertCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var events []Event
	_, err := Convert(ctx, []byte(journalRaw), Options{
		Progress: func(ev Event) { events = append(events, ev) },
	})
	if err != context.Canceled {
		t.Fatalf("Convert() error = %v, want context.Canceled", err)
	}
	seen := false
	for _, ev := range events {
		if ev.Stage == StageCancelled {
			seen = true
		}
	}
	if !seen {
		t.Error("cancellation was not reported")
	}
}

func TestConvertBasicSynthesizesSection(t *testing.T) {
	raw := `{"values": {"title": "Just a Map", "webmap": "m9"}}`
	res, err := Convert(context.Background(), []byte(raw), Options{})
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	doc := res.Documents[0]
	if got := nodesOfType(doc, story.NodeTypeImmersiveSlide); len(got) != 1 {
		t.Fatalf("got %d slides, want 1", len(got))
	}
	if got := nodesOfType(doc, story.NodeTypeWebMap); len(got) != 1 {
		t.Fatalf("got %d webmap nodes, want 1", len(got))
	}
}

func TestConvertSeries(t *testing.T) {
	raw := `{
		"values": {
			"template": "MapSeries",
			"settings": {"panel": {"position": "left", "size": "medium"}},
			"series": [
				{"title": "A Photo", "media": {"type": "image", "image": {"url": "https://img.example.com/a.jpg"}}},
				{"title": "A Map", "media": {"type": "webmap", "webmap": {"id": "m1"}}},
				{"title": "A Story", "values": {"template": "MapJournal", "story": {"sections": [{"title": "One", "content": "<p>Hello</p>"}]}}}
			]
		}
	}`
	res, err := Convert(context.Background(), []byte(raw), Options{})
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	if len(res.Documents) != 3 {
		t.Fatalf("got %d documents, want 3", len(res.Documents))
	}
	for i, doc := range res.Documents {
		if doc.Root == "" || doc.Nodes[doc.Root] == nil {
			t.Errorf("document %d has no root", i)
		}
	}
	if res.Collection == nil || res.Collection.PanelPosition != "left" {
		t.Errorf("collection settings = %+v", res.Collection)
	}

	// The nested journal entry produced real slides.
	if got := nodesOfType(res.Documents[2], story.NodeTypeImmersiveSlide); len(got) != 1 {
		t.Errorf("nested journal has %d slides, want 1", len(got))
	}
	found := false
	for _, u := range res.Media {
		if u == "https://img.example.com/a.jpg" {
			found = true
		}
	}
	if !found {
		t.Errorf("media list %v is missing the image entry", res.Media)
	}
}

func TestConvertWebSceneEnrichment(t *testing.T) {
	raw := `{"values": {"template": "MapJournal", "story": {"sections": [
		{"title": "Scene", "media": {"type": "webscene", "webmap": {"id": "s1"}}}
	]}}}`
	def := `{
		"initialState": {"viewpoint": {"camera": {"position": {"x": 1, "y": 2, "z": 300}, "heading": 90, "tilt": 45}}},
		"presentation": {"slides": [{"id": "sl1", "title": {"text": "Start"}}]}
	}`
	res, err := Convert(context.Background(), []byte(raw), Options{
		Fetcher: &fetch.StaticFetcher{Items: map[string][]byte{
			"webscene:s1": []byte(def),
		}},
	})
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	scenes := resourcesOfType(res.Documents[0], story.ResourceTypeWebScene)
	if len(scenes) != 1 {
		t.Fatalf("got %d webscene resources, want 1", len(scenes))
	}
	if scenes[0].Variant != story.VariantDefault {
		t.Errorf("scene variant = %q, want default", scenes[0].Variant)
	}
	camera, _ := scenes[0].Data["camera"].(story.Data)
	if camera == nil || camera["heading"] != 90.0 {
		t.Errorf("scene camera = %+v", scenes[0].Data["camera"])
	}
	slides, _ := scenes[0].Data["slides"].([]story.Data)
	if len(slides) != 1 || slides[0]["title"] != "Start" {
		t.Errorf("scene slides = %+v", scenes[0].Data["slides"])
	}
}

func TestConvertInvalidJSON(t *testing.T) {
	if _, err := Convert(context.Background(), []byte("not json"), Options{}); err == nil {
		t.Error("Convert() accepted invalid JSON")
	}
}

func TestConvertProgressStages(t *testing.T) {
	var stages []Stage
	_, err := Convert(context.Background(), []byte(journalRaw), Options{
		Fetcher: &fetch.StaticFetcher{Items: map[string][]byte{
			"webmap:m1": []byte(`{"baseMap":{"title":"Topo"}}`),
		}},
		Progress: func(ev Event) { stages = append(stages, ev.Stage) },
	})
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	want := []Stage{StageClassified, StageStructure, StageContent, StageTheme, StageMedia, StageEnrichment}
	for _, w := range want {
		seen := false
		for _, s := range stages {
			if s == w {
				seen = true
			}
		}
		if !seen {
			t.Errorf("stage %q was never reported (got %v)", w, stages)
		}
	}
}
