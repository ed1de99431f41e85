package voice

import "testing"

func TestResolveVoice(t *testing.T) {
	const fallback = "zh-CN-XiaoxiaoNeural"
	cases := []struct {
		name      string
		model     string
		requested string
		want      string
	}{
		{name: "default when nothing set", want: fallback},
		{name: "openai alias", requested: "echo", want: "zh-CN-YunxiNeural"},
		{name: "alias is case insensitive", requested: "Shimmer", want: "zh-CN-XiaohanNeural"},
		{name: "backend voice passes through", requested: "en-US-AriaNeural", want: "en-US-AriaNeural"},
		{name: "model names alias", model: "tts-1-onyx", requested: "echo", want: "zh-CN-YunjianNeural"},
		{name: "hd model names alias", model: "tts-1-hd-nova", want: "zh-CN-XiaochenNeural"},
		{name: "model names backend voice", model: "tts-1-en-GB-RyanNeural", want: "en-GB-RyanNeural"},
		{name: "plain hd model uses voice", model: "tts-1-hd", requested: "fable", want: "zh-CN-XiaoyiNeural"},
		{name: "plain model uses fallback", model: "tts-1", want: fallback},
		{name: "unrelated model ignored", model: "gpt-4o-mini-tts", requested: "alloy", want: "zh-CN-XiaoxiaoNeural"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := ResolveVoice(tc.model, tc.requested, fallback); got != tc.want {
				t.Fatalf("ResolveVoice(%q, %q) = %q, want %q", tc.model, tc.requested, got, tc.want)
			}
		})
	}
}

func TestModelIDsListsBaseModelsFirst(t *testing.T) {
	ids := ModelIDs()
	if len(ids) != 14 {
		t.Fatalf("ModelIDs() = %d ids, want 14", len(ids))
	}
	if ids[0] != ModelTTS1 || ids[1] != ModelTTS1HD {
		t.Fatalf("ModelIDs() head = %v", ids[:2])
	}
	if ids[2] != "tts-1-alloy" || ids[8] != "tts-1-hd-alloy" {
		t.Fatalf("ModelIDs() alias ordering = %v", ids)
	}
}

func TestResolveFormat(t *testing.T) {
	const mp3 = "audio-24khz-48kbitrate-mono-mp3"
	cases := []struct {
		in          string
		backend     string
		contentType string
		wrap        bool
	}{
		{in: "", backend: mp3, contentType: "audio/mpeg"},
		{in: "MP3", backend: mp3, contentType: "audio/mpeg"},
		{in: "wav", backend: "raw-24khz-16bit-mono-pcm", contentType: "audio/wav", wrap: true},
		{in: "pcm", backend: "raw-24khz-16bit-mono-pcm", contentType: "audio/pcm"},
	}
	for _, tc := range cases {
		got, err := ResolveFormat(tc.in, mp3)
		if err != nil {
			t.Fatalf("ResolveFormat(%q) error = %v", tc.in, err)
		}
		if got.BackendFormat != tc.backend || got.ContentType != tc.contentType || got.WrapWAV != tc.wrap {
			t.Fatalf("ResolveFormat(%q) = %+v", tc.in, got)
		}
	}
	if _, err := ResolveFormat("opus", mp3); err == nil {
		t.Fatalf("ResolveFormat(opus) error = nil, want unsupported")
	}
}

func TestPercentOffset(t *testing.T) {
	cases := map[float64]int{0: 0, 1: 0, 1.5: 50, 0.8: -20, 2: 100}
	for in, want := range cases {
		if got := PercentOffset(in); got != want {
			t.Fatalf("PercentOffset(%v) = %d, want %d", in, got, want)
		}
	}
}
