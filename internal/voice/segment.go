package voice

import "strings"

// isBoundaryMarker reports sentence and clause breaks, Latin and CJK.
func isBoundaryMarker(r rune) bool {
	switch r {
	case '.', '?', '!', ',', ';', ':', '\n',
		'。', '？', '！', '，', '；', '：', '、':
		return true
	default:
		return false
	}
}

// Segment splits text into ordered chunks of at most maxLength characters,
// preferring to cut after punctuation. Text without any boundary marker is cut
// at fixed width, and so is any single piece longer than maxLength.
// maxLength <= 0 disables the limit.
func Segment(text string, maxLength int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if maxLength <= 0 {
		return []string{strings.TrimSpace(text)}
	}

	if !strings.ContainsFunc(text, isBoundaryMarker) {
		return sliceFixedWidth([]rune(text), maxLength)
	}
	return segmentAtBoundaries(text, maxLength)
}

// Chunks segments text and assigns contiguous indexes starting at zero.
func Chunks(text string, maxLength int) []Chunk {
	parts := Segment(text, maxLength)
	chunks := make([]Chunk, 0, len(parts))
	for i, p := range parts {
		chunks = append(chunks, Chunk{Index: i, Text: p})
	}
	return chunks
}

func segmentAtBoundaries(text string, maxLength int) []string {
	var (
		out []string
		buf []rune
	)
	for _, piece := range splitAfterMarkers(text) {
		if len(buf)+len(piece) <= maxLength {
			buf = append(buf, piece...)
			continue
		}
		out = appendTrimmed(out, buf)
		buf = buf[:0]
		if len(piece) > maxLength {
			out = append(out, sliceFixedWidth(piece, maxLength)...)
			continue
		}
		buf = append(buf, piece...)
	}
	return appendTrimmed(out, buf)
}

// splitAfterMarkers cuts text after every boundary marker, keeping the marker
// with the piece it ends.
func splitAfterMarkers(text string) [][]rune {
	runes := []rune(text)
	var pieces [][]rune
	start := 0
	for i, r := range runes {
		if isBoundaryMarker(r) {
			pieces = append(pieces, runes[start:i+1])
			start = i + 1
		}
	}
	if start < len(runes) {
		pieces = append(pieces, runes[start:])
	}
	return pieces
}

func sliceFixedWidth(runes []rune, width int) []string {
	var out []string
	for len(runes) > width {
		out = appendTrimmed(out, runes[:width])
		runes = runes[width:]
	}
	return appendTrimmed(out, runes)
}

func appendTrimmed(out []string, piece []rune) []string {
	s := strings.TrimSpace(string(piece))
	if s == "" {
		return out
	}
	return append(out, s)
}
