package classic

import (
	"testing"

	"github.com/tidwall/gjson"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Template
	}{
		{
			name: "declared journal template",
			raw:  `{"values":{"template":"MapJournal"}}`,
			want: TemplateJournal,
		},
		{
			name: "declared swipe template",
			raw:  `{"values":{"template":"Swipe"}}`,
			want: TemplateSwipe,
		},
		{
			name: "declared spyglass counts as swipe",
			raw:  `{"values":{"template":"StorytellingSwipe-Spyglass"}}`,
			want: TemplateSwipe,
		},
		{
			name: "declared tour template",
			raw:  `{"values":{"template":"MapTour"}}`,
			want: TemplateTour,
		},
		{
			name: "declared series template",
			raw:  `{"values":{"template":"MapSeries"}}`,
			want: TemplateSeries,
		},
		{
			name: "declared template is case insensitive",
			raw:  `{"values":{"template":"mapJOURNAL"}}`,
			want: TemplateJournal,
		},
		{
			name: "series list fingerprint",
			raw:  `{"values":{"series":[{"title":"a"},{"title":"b"}]}}`,
			want: TemplateSeries,
		},
		{
			name: "entries list fingerprint",
			raw:  `{"values":{"entries":[{"title":"a"}]}}`,
			want: TemplateSeries,
		},
		{
			name: "order list fingerprint",
			raw:  `{"values":{"order":[{"lat":1,"lng":2}]}}`,
			want: TemplateTour,
		},
		{
			name: "data model fingerprint",
			raw:  `{"values":{"dataModel":"TWO_WEBMAPS"}}`,
			want: TemplateSwipe,
		},
		{
			name: "layers fingerprint",
			raw:  `{"values":{"layers":[{"id":"l0"}]}}`,
			want: TemplateSwipe,
		},
		{
			name: "webmaps fingerprint",
			raw:  `{"values":{"webmaps":["a","b"]}}`,
			want: TemplateSwipe,
		},
		{
			name: "sections with sequence type",
			raw:  `{"values":{"story":{"sections":[{"type":"sequence","content":"<p>x</p>"}]}}}`,
			want: TemplateSequential,
		},
		{
			name: "plain sections fall to journal",
			raw:  `{"values":{"story":{"sections":[{"content":"<p>x</p>"}]}}}`,
			want: TemplateJournal,
		},
		{
			name: "declared template beats structure",
			raw:  `{"values":{"template":"MapTour","series":[{}]}}`,
			want: TemplateTour,
		},
		{
			name: "empty document is basic",
			raw:  `{}`,
			want: TemplateBasic,
		},
		{
			name: "unrecognized values are basic",
			raw:  `{"values":{"title":"hello","webmap":"abc"}}`,
			want: TemplateBasic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify([]byte(tt.raw)); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassifyEntry(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Template
	}{
		{
			name: "inline values win",
			raw:  `{"url":"https://example.com/apps/MapTour/","values":{"template":"MapJournal"}}`,
			want: TemplateJournal,
		},
		{
			name: "url shape fallback",
			raw:  `{"url":"https://example.com/apps/MapTour/index.html?appid=x"}`,
			want: TemplateTour,
		},
		{
			name: "unknown entry is basic",
			raw:  `{"title":"just a map"}`,
			want: TemplateBasic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyEntry(gjson.Parse(tt.raw)); got != tt.want {
				t.Errorf("ClassifyEntry() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	raw := []byte(`{
		"item": "abc123",
		"values": {
			"template": "Swipe",
			"webmap": {"id": "m1"},
			"webmaps": ["m1", {"id": "m2"}],
			"settings": {"theme": {"colors": {"group": "dark"}}}
		}
	}`)
	doc, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if doc.ItemID != "abc123" {
		t.Errorf("ItemID = %q", doc.ItemID)
	}
	if doc.Values.WebMap.String() != "m1" {
		t.Errorf("WebMap = %q, want m1", doc.Values.WebMap)
	}
	if len(doc.Values.WebMaps) != 2 || doc.Values.WebMaps[1].String() != "m2" {
		t.Errorf("WebMaps = %v", doc.Values.WebMaps)
	}
	if doc.Values.Settings.Theme.Colors.Group != "dark" {
		t.Errorf("theme group = %q", doc.Values.Settings.Theme.Colors.Group)
	}

	if _, err := Parse([]byte("not json")); err == nil {
		t.Error("Parse() accepted invalid JSON")
	}
}
