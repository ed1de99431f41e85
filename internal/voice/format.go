package voice

import (
	"fmt"
	"strings"
)

const (
	FormatMP3 = "mp3"
	FormatWAV = "wav"
	FormatPCM = "pcm"

	pcmBackendFormat = "raw-24khz-16bit-mono-pcm"
	PCMSampleRate    = 24000
)

// Format describes how a response_format maps onto the backend and the HTTP reply.
type Format struct {
	Name          string
	BackendFormat string
	ContentType   string
	// WrapWAV means the concatenated PCM must be framed in a WAV container.
	WrapWAV bool
}

// ResolveFormat maps a client response_format onto the backend output format.
// An empty name selects mp3, rendered with mp3BackendFormat.
func ResolveFormat(name, mp3BackendFormat string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", FormatMP3:
		return Format{Name: FormatMP3, BackendFormat: mp3BackendFormat, ContentType: "audio/mpeg"}, nil
	case FormatWAV:
		return Format{Name: FormatWAV, BackendFormat: pcmBackendFormat, ContentType: "audio/wav", WrapWAV: true}, nil
	case FormatPCM:
		return Format{Name: FormatPCM, BackendFormat: pcmBackendFormat, ContentType: "audio/pcm"}, nil
	default:
		return Format{}, fmt.Errorf("unsupported response_format %q (want mp3, wav or pcm)", name)
	}
}
