package content

import (
	"strings"
	"testing"
)

func TestResolveColor(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
		ok    bool
	}{
		{"six digit hex", "#FF0000", "ff0000", true},
		{"three digit hex", "#abc", "aabbcc", true},
		{"rgb", "rgb(255, 128, 0)", "ff8000", true},
		{"rgba ignores alpha", "rgba(0,0,0,0.5)", "000000", true},
		{"named color", "tomato", "ff6347", true},
		{"named color case insensitive", "DarkBlue", "00008b", true},
		{"out of range rgb", "rgb(300,0,0)", "", false},
		{"garbage", "not-a-color", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := resolveColor(tt.value)
			if ok != tt.ok || got != tt.want {
				t.Errorf("resolveColor(%q) = (%q, %v), want (%q, %v)", tt.value, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestRewriteInlineColors(t *testing.T) {
	t.Run("color declaration becomes a class", func(t *testing.T) {
		got := rewriteInlineColors(`<span style="color: #ff0000">hot</span>`)
		if !strings.Contains(got, `class="sg-color-ff0000"`) {
			t.Errorf("missing generated class: %q", got)
		}
		if strings.Contains(got, "color:") || strings.Contains(got, "style=") {
			t.Errorf("color declaration should be removed with the emptied style attribute: %q", got)
		}
	})

	t.Run("other declarations survive", func(t *testing.T) {
		got := rewriteInlineColors(`<span style="font-weight:bold; color: blue">x</span>`)
		if !strings.Contains(got, "font-weight:bold") {
			t.Errorf("non-color declaration dropped: %q", got)
		}
		if !strings.Contains(got, "sg-color-0000ff") {
			t.Errorf("missing class for named color: %q", got)
		}
		if strings.Contains(got, "color: blue") {
			t.Errorf("color declaration not removed: %q", got)
		}
	})

	t.Run("existing class is extended", func(t *testing.T) {
		got := rewriteInlineColors(`<span class="lede" style="color:rgb(0,128,0)">x</span>`)
		if !strings.Contains(got, `class="lede sg-color-008000"`) {
			t.Errorf("existing class not extended: %q", got)
		}
	})

	t.Run("unresolvable color left alone", func(t *testing.T) {
		in := `<span style="color:var(--accent)">x</span>`
		if got := rewriteInlineColors(in); got != in {
			t.Errorf("unresolvable color should pass through, got %q", got)
		}
	})
}

func TestSplitTextBlocks(t *testing.T) {
	got := splitTextBlocks("<div><p>First</p><p>Second</p></div>")
	// Wrapper tag slices are kept here and dropped later by the emptiness test.
	var paragraphs []string
	for _, blockHTML := range got {
		if !emptySegment(blockHTML) {
			paragraphs = append(paragraphs, blockHTML)
		}
	}
	if len(paragraphs) != 2 {
		t.Fatalf("paragraphs = %v, want 2 entries", paragraphs)
	}
	if paragraphs[0] != "<p>First</p>" || paragraphs[1] != "<p>Second</p>" {
		t.Errorf("paragraphs = %v", paragraphs)
	}
}

func TestEmptySegment(t *testing.T) {
	tests := []struct {
		fragment string
		want     bool
	}{
		{"<p>&nbsp;</p>", true},
		{"<p>   </p>", true},
		{"", true},
		{"<p>x</p>", false},
		{"plain words", false},
	}
	for _, tt := range tests {
		if got := emptySegment(tt.fragment); got != tt.want {
			t.Errorf("emptySegment(%q) = %v, want %v", tt.fragment, got, tt.want)
		}
	}
}

func TestVideoProviderURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.youtube.com/embed/abc", true},
		{"https://youtu.be/abc", true},
		{"https://player.vimeo.com/video/1", true},
		{"https://example.com/video", false},
		{"://broken", false},
	}
	for _, tt := range tests {
		if got := videoProviderURL(tt.url); got != tt.want {
			t.Errorf("videoProviderURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}
