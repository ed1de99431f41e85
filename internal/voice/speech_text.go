package voice

import (
	"regexp"
	"strings"
	"unicode"
)

// CleaningOptions selects which noise CleanText strips before synthesis.
type CleaningOptions struct {
	RemoveMarkdown        bool     `json:"remove_markdown"`
	RemoveEmoji           bool     `json:"remove_emoji"`
	RemoveURLs            bool     `json:"remove_urls"`
	RemoveLineBreaks      bool     `json:"remove_line_breaks"`
	RemoveCitationNumbers bool     `json:"remove_citation_numbers"`
	CustomKeywords        []string `json:"custom_keywords"`
}

// DefaultCleaningOptions enables every filter and no custom keywords.
func DefaultCleaningOptions() CleaningOptions {
	return CleaningOptions{
		RemoveMarkdown:        true,
		RemoveEmoji:           true,
		RemoveURLs:            true,
		RemoveLineBreaks:      true,
		RemoveCitationNumbers: true,
	}
}

var (
	speechURLPattern          = regexp.MustCompile(`https?://[^\s)\]]*[^\s)\].,;:!?'"]`)
	speechFencedCodePattern   = regexp.MustCompile("(?s)```.*?```")
	speechInlineCodePattern   = regexp.MustCompile("`([^`]*)`")
	speechImagePattern        = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	speechMarkdownLinkPattern = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	speechHeadingPattern      = regexp.MustCompile(`(?m)^\s{0,3}#{1,6}\s*`)
	speechQuotePattern        = regexp.MustCompile(`(?m)^\s{0,3}>\s?`)
	speechListPattern         = regexp.MustCompile(`(?m)^\s*(?:[-*+]|\d+\.)\s+`)
	speechRulePattern         = regexp.MustCompile(`(?m)^\s*(?:[-*_]\s*){3,}$`)
	speechEmphasisPattern     = regexp.MustCompile(`(\*\*|__|\*|_|~~)([^*_~\n]+?)(\*\*|__|\*|_|~~)`)
	speechCitationPattern     = regexp.MustCompile(`\[\d+(?:\s*[,-]\s*\d+)*\]`)
	speechSpacePattern        = regexp.MustCompile(`[ \t]+`)
)

// CleanText removes markup and symbol noise so the text sounds natural when spoken.
func CleanText(raw string, opts CleaningOptions) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	// Links are unwrapped to their label before bare URLs go, and bare URLs go
	// before the remaining markup rules can split them on '#' or '_'.
	if opts.RemoveMarkdown {
		raw = unwrapMarkdownBlocks(raw)
	}
	if opts.RemoveURLs {
		raw = speechURLPattern.ReplaceAllString(raw, " ")
	}
	if opts.RemoveMarkdown {
		raw = stripMarkdown(raw)
	}
	if opts.RemoveCitationNumbers {
		raw = speechCitationPattern.ReplaceAllString(raw, "")
	}
	if opts.RemoveEmoji {
		raw = stripSymbols(raw)
	}
	for _, kw := range opts.CustomKeywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			raw = strings.ReplaceAll(raw, kw, "")
		}
	}

	if opts.RemoveLineBreaks {
		return strings.Join(strings.Fields(raw), " ")
	}
	lines := strings.Split(raw, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(speechSpacePattern.ReplaceAllString(line, " "))
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func unwrapMarkdownBlocks(raw string) string {
	raw = speechFencedCodePattern.ReplaceAllString(raw, " ")
	raw = speechImagePattern.ReplaceAllString(raw, " ")
	return speechMarkdownLinkPattern.ReplaceAllString(raw, "$1")
}

func stripMarkdown(raw string) string {
	raw = speechInlineCodePattern.ReplaceAllString(raw, "$1")
	raw = speechRulePattern.ReplaceAllString(raw, "")
	raw = speechHeadingPattern.ReplaceAllString(raw, "")
	raw = speechQuotePattern.ReplaceAllString(raw, "")
	raw = speechListPattern.ReplaceAllString(raw, "")
	raw = speechEmphasisPattern.ReplaceAllString(raw, "$2")
	return strings.NewReplacer("|", " ", "#", " ", "~", " ", "\\", " ").Replace(raw)
}

func stripSymbols(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r == '\u200d' || r == '\ufe0f' || r == '\u20e3':
			continue
		case r == '\n' || r == '\t':
			b.WriteRune(r)
		case unicode.IsControl(r):
			continue
		case unicode.In(r, unicode.So, unicode.Sk, unicode.Cs):
			// Emoji and pictographs sound unnatural when spoken.
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
