package escape

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestText(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", ""},
		{"plain", "plain"},
		{`<script>alert("x")</script>`, "&lt;script&gt;alert(&quot;x&quot;)&lt;/script&gt;"},
		{"Tom & Jerry's", "Tom &amp; Jerry&#039;s"},
		{"&amp;", "&amp;amp;"},
	}
	for _, tc := range cases {
		if got := Text(tc.in); got != tc.want {
			t.Errorf("Text(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestAttrMatchesText(t *testing.T) {
	in := `a"b'c<d>e&f`
	if Attr(in) != Text(in) {
		t.Errorf("Attr(%q) = %q, Text = %q", in, Attr(in), Text(in))
	}
}

func TestEscapeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1357)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("output never contains raw markup characters", prop.ForAll(
		func(s string) bool {
			out := Text(s)
			return !strings.ContainsAny(out, `<>"'`)
		},
		gen.AnyString(),
	))

	properties.Property("strings without special characters are unchanged", prop.ForAll(
		func(s string) bool {
			return Text(s) == s
		},
		gen.AlphaString(),
	))

	properties.Property("every ampersand starts an entity", prop.ForAll(
		func(s string) bool {
			out := Text(s)
			for i := 0; i < len(out); i++ {
				if out[i] != '&' {
					continue
				}
				rest := out[i:]
				if !strings.HasPrefix(rest, "&amp;") && !strings.HasPrefix(rest, "&lt;") &&
					!strings.HasPrefix(rest, "&gt;") && !strings.HasPrefix(rest, "&quot;") &&
					!strings.HasPrefix(rest, "&#039;") {
					return false
				}
			}
			return true
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
