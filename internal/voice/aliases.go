package voice

import (
	"sort"
	"strings"
)

const (
	ModelTTS1   = "tts-1"
	ModelTTS1HD = "tts-1-hd"
)

var openAIVoiceAliases = map[string]string{
	"alloy":   "zh-CN-XiaoxiaoNeural",
	"echo":    "zh-CN-YunxiNeural",
	"fable":   "zh-CN-XiaoyiNeural",
	"onyx":    "zh-CN-YunjianNeural",
	"nova":    "zh-CN-XiaochenNeural",
	"shimmer": "zh-CN-XiaohanNeural",
}

// VoiceAlias pairs an OpenAI voice name with the backend voice it plays as.
type VoiceAlias struct {
	Alias string `json:"alias"`
	Voice string `json:"voice"`
}

// VoiceAliases returns the alias table sorted by alias.
func VoiceAliases() []VoiceAlias {
	out := make([]VoiceAlias, 0, len(openAIVoiceAliases))
	for alias, v := range openAIVoiceAliases {
		out = append(out, VoiceAlias{Alias: alias, Voice: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Alias < out[j].Alias })
	return out
}

// ModelIDs lists the model identifiers the gateway accepts, base models first.
func ModelIDs() []string {
	aliases := VoiceAliases()
	ids := make([]string, 0, 2+2*len(aliases))
	ids = append(ids, ModelTTS1, ModelTTS1HD)
	for _, a := range aliases {
		ids = append(ids, ModelTTS1+"-"+a.Alias)
	}
	for _, a := range aliases {
		ids = append(ids, ModelTTS1HD+"-"+a.Alias)
	}
	return ids
}

// ResolveVoice picks the backend voice for a request. A model that names a
// voice wins, then an aliased or literal voice, then fallback.
func ResolveVoice(model, requested, fallback string) string {
	if v := voiceFromModel(model); v != "" {
		return v
	}
	requested = strings.TrimSpace(requested)
	if v, ok := openAIVoiceAliases[strings.ToLower(requested)]; ok {
		return v
	}
	if requested != "" {
		return requested
	}
	return fallback
}

func voiceFromModel(model string) string {
	model = strings.TrimSpace(model)
	var suffix string
	switch {
	case strings.HasPrefix(model, ModelTTS1HD+"-"):
		suffix = strings.TrimPrefix(model, ModelTTS1HD+"-")
	case strings.HasPrefix(model, ModelTTS1+"-"):
		suffix = strings.TrimPrefix(model, ModelTTS1+"-")
	default:
		return ""
	}
	if v, ok := openAIVoiceAliases[strings.ToLower(suffix)]; ok {
		return v
	}
	// tts-1-hd itself has no voice suffix.
	if suffix == "hd" {
		return ""
	}
	return suffix
}
