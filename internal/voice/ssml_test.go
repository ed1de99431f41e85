package voice

import (
	"strings"
	"testing"
)

func TestBuildSSML(t *testing.T) {
	got := BuildSSML("Tom & Jerry <live>", Params{
		Voice:        "en-US-AriaNeural",
		RatePercent:  25,
		PitchPercent: -10,
		Style:        "cheerful",
	})

	for _, want := range []string{
		`xml:lang="en-US"`,
		`<voice name="en-US-AriaNeural">`,
		`<mstts:express-as style="cheerful">`,
		`<prosody rate="25%" pitch="-10%">`,
		`Tom &amp; Jerry &lt;live&gt;</prosody>`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("BuildSSML() missing %q in %s", want, got)
		}
	}
}

func TestBuildSSMLDefaults(t *testing.T) {
	got := BuildSSML("hi", Params{Voice: "custom"})
	if !strings.Contains(got, `style="general"`) {
		t.Fatalf("BuildSSML() default style missing: %s", got)
	}
	if !strings.Contains(got, `xml:lang="zh-CN"`) {
		t.Fatalf("BuildSSML() default locale missing: %s", got)
	}
	if !strings.Contains(got, `rate="0%" pitch="0%"`) {
		t.Fatalf("BuildSSML() default prosody missing: %s", got)
	}
}

func TestBuildSSMLEscapesAttributes(t *testing.T) {
	got := BuildSSML("x", Params{Voice: `a"b`})
	if !strings.Contains(got, `name="a&quot;b"`) {
		t.Fatalf("BuildSSML() did not escape voice attribute: %s", got)
	}
}
