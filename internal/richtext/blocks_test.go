package richtext

import (
	"strings"
	"testing"
)

func TestButtonBlock(t *testing.T) {
	cases := []struct {
		name   string
		fields map[string]any
		want   string
	}{
		{
			name:   "defaults",
			fields: map[string]any{"blockType": "customButton"},
			want: `<div class="my-6 text-left"><a href="#" class="inline-flex items-center justify-center px-6 py-3 bg-blue-600 text-white rounded-lg font-medium hover:bg-blue-700 transition text-base">` +
				`Learn more</a></div>`,
		},
		{
			name: "outline large centered new tab",
			fields: map[string]any{
				"buttonText":   "Buy <now>",
				"buttonLink":   "/shop",
				"buttonStyle":  "outline",
				"buttonSize":   "large",
				"alignment":    "center",
				"openInNewTab": true,
			},
			want: `<div class="my-6 text-center"><a href="/shop" class="inline-flex items-center justify-center px-6 py-3 border-2 border-blue-600 text-blue-600 rounded-lg font-medium hover:bg-blue-50 transition text-lg px-8 py-4"` +
				` target="_blank" rel="noopener noreferrer">Buy &lt;now&gt;</a></div>`,
		},
		{
			name:   "unknown style and alignment fall back",
			fields: map[string]any{"buttonStyle": "neon", "alignment": `x" onclick="y`, "buttonSize": "small"},
			want: `<div class="my-6 text-left"><a href="#" class="inline-flex items-center justify-center px-6 py-3 bg-blue-600 text-white rounded-lg font-medium hover:bg-blue-700 transition text-sm px-4 py-2">` +
				`Learn more</a></div>`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Serialize(&Root{Children: []Node{&Block{BlockType: BlockCustomButton, Fields: tc.fields}}})
			if got != tc.want {
				t.Errorf("got  %q\nwant %q", got, tc.want)
			}
		})
	}
}

func TestButtonStyles(t *testing.T) {
	for style, want := range map[string]string{
		"secondary": "bg-gray-700",
		"ghost":     "px-6 py-3 text-blue-600",
	} {
		got := Serialize(&Root{Children: []Node{&Block{BlockType: BlockCustomButton, Fields: map[string]any{"buttonStyle": style}}}})
		if !strings.Contains(got, want) {
			t.Errorf("%s: %q missing %q", style, got, want)
		}
	}
}

func TestCalloutBlock(t *testing.T) {
	cases := map[string]string{
		"":        "border-blue-500 bg-blue-50 text-blue-900",
		"info":    "border-blue-500 bg-blue-50 text-blue-900",
		"warning": "border-yellow-500 bg-yellow-50 text-yellow-900",
		"success": "border-green-500 bg-green-50 text-green-900",
		"error":   "border-red-500 bg-red-50 text-red-900",
		"bogus":   "border-blue-500 bg-blue-50 text-blue-900",
	}
	for typ, colors := range cases {
		f := map[string]any{"content": "<b>careful</b>"}
		if typ != "" {
			f["type"] = typ
		}
		got := Serialize(&Root{Children: []Node{&Block{BlockType: BlockCallout, Fields: f}}})
		want := `<div class="my-4 border-l-4 p-4 rounded ` + colors + `">&lt;b&gt;careful&lt;/b&gt;</div>`
		if got != want {
			t.Errorf("type %q: got %q", typ, got)
		}
	}
}

func TestUnknownBlockRendersNothing(t *testing.T) {
	got := Serialize(&Root{Children: []Node{&Block{BlockType: "carousel", Fields: map[string]any{"x": 1}}}})
	if got != "" {
		t.Errorf("got %q", got)
	}
}
