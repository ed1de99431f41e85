package audio

import (
	"encoding/binary"
	"io"
)

const (
	wavHeaderSize = 44
	numChannels   = 1
	bitsPerSample = 16
	formatPCM     = 1

	// unknownSize marks RIFF and data lengths of a stream whose length is not
	// known up front. Most players read until EOF.
	unknownSize = 0xFFFFFFFF
)

// EncodeWAVPCM16LE wraps raw PCM16LE mono audio bytes in a WAV container.
func EncodeWAVPCM16LE(pcm []byte, sampleRate int) []byte {
	out := make([]byte, 0, wavHeaderSize+len(pcm))
	out = append(out, wavHeader(uint32(len(pcm)), uint32(36+len(pcm)), sampleRate)...)
	return append(out, pcm...)
}

// StreamingWAVHeader returns a header for PCM16LE mono audio of unknown length.
func StreamingWAVHeader(sampleRate int) []byte {
	return wavHeader(unknownSize, unknownSize, sampleRate)
}

// WriteWAVPCM16LETo writes raw PCM16LE mono audio bytes to out as a WAV stream.
func WriteWAVPCM16LETo(out io.Writer, pcm []byte, sampleRate int) error {
	_, err := out.Write(EncodeWAVPCM16LE(pcm, sampleRate))
	return err
}

func wavHeader(dataSize, riffSize uint32, sampleRate int) []byte {
	if sampleRate <= 0 {
		sampleRate = 24000
	}
	blockAlign := numChannels * bitsPerSample / 8

	h := make([]byte, wavHeaderSize)
	le := binary.LittleEndian
	copy(h[0:4], "RIFF")
	le.PutUint32(h[4:8], riffSize)
	copy(h[8:12], "WAVE")

	copy(h[12:16], "fmt ")
	le.PutUint32(h[16:20], 16)
	le.PutUint16(h[20:22], formatPCM)
	le.PutUint16(h[22:24], numChannels)
	le.PutUint32(h[24:28], uint32(sampleRate))
	le.PutUint32(h[28:32], uint32(sampleRate*blockAlign))
	le.PutUint16(h[32:34], uint16(blockAlign))
	le.PutUint16(h[34:36], bitsPerSample)

	copy(h[36:40], "data")
	le.PutUint32(h[40:44], dataSize)
	return h
}
