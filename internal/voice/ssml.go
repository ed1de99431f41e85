package voice

import (
	"strconv"
	"strings"
)

var (
	ssmlTextEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	ssmlAttrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
)

// BuildSSML renders the markup payload for one chunk.
func BuildSSML(text string, p Params) string {
	style := strings.TrimSpace(p.Style)
	if style == "" {
		style = "general"
	}

	var b strings.Builder
	b.Grow(len(text) + 384)
	b.WriteString(`<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xmlns:mstts="https://www.w3.org/2001/mstts" xml:lang="`)
	b.WriteString(ssmlAttrEscaper.Replace(voiceLocale(p.Voice)))
	b.WriteString(`"><voice name="`)
	b.WriteString(ssmlAttrEscaper.Replace(p.Voice))
	b.WriteString(`"><mstts:express-as style="`)
	b.WriteString(ssmlAttrEscaper.Replace(style))
	b.WriteString(`"><prosody rate="`)
	b.WriteString(strconv.Itoa(p.RatePercent))
	b.WriteString(`%" pitch="`)
	b.WriteString(strconv.Itoa(p.PitchPercent))
	b.WriteString(`%">`)
	b.WriteString(ssmlTextEscaper.Replace(text))
	b.WriteString(`</prosody></mstts:express-as></voice></speak>`)
	return b.String()
}

// voiceLocale extracts the locale prefix of a neural voice name, e.g. en-US-AriaNeural -> en-US.
func voiceLocale(name string) string {
	parts := strings.Split(strings.TrimSpace(name), "-")
	if len(parts) >= 3 && len(parts[0]) >= 2 && len(parts[1]) >= 2 {
		return parts[0] + "-" + parts[1]
	}
	return "zh-CN"
}
