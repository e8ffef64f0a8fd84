// Package cleaner reduces an email body to the plain text a reader wants
// to see in a list preview: no headers, quotes or signatures.
package cleaner

import (
	"regexp"
	"strings"

	"labelmail/models"
)

const (
	DefaultSignatureThreshold = 0.5
	DefaultWordBoundaryRatio  = 0.8
	DefaultPreviewLength      = 200
	ellipsis                  = "..."
)

var headerLines = regexp.MustCompile(`(?im)^(Message-ID|In-Reply-To|References|X-Mailer|X-Original-Sender|Return-Path|Received|MIME-Version|Content-Type|Content-Transfer-Encoding): .+$`)

var quotedLines = regexp.MustCompile(`(?m)^>+.*$`)

var replyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)^On .+ wrote:.*$`),
	regexp.MustCompile(`(?im)^(From|Sent|To|Subject|Date): .+$`),
	regexp.MustCompile(`(?im)^Le .+ a écrit ?:.*$`),
	regexp.MustCompile(`(?im)^El .+ escribió:.*$`),
	regexp.MustCompile(`(?im)^Am .+ schrieb .+:.*$`),
	regexp.MustCompile(`(?im)^-+ ?Forwarded Message ?-+$`),
	regexp.MustCompile(`(?im)^Begin forwarded message:.*$`),
	regexp.MustCompile(`(?im)^End forwarded message:.*$`),
}

var signatureMarkers = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^--[ \t]*$`),
	regexp.MustCompile(`(?m)^_{3,}[ \t]*$`),
	regexp.MustCompile(`(?m)^-{3,}.*$`),
	regexp.MustCompile(`(?im)^Sent from my .+$`),
	regexp.MustCompile(`(?im)^Get Outlook for .+$`),
	regexp.MustCompile(`(?im)^Sent from Mail for .+$`),
	regexp.MustCompile(`(?im)^This email was sent from .+$`),
	regexp.MustCompile(`(?im)^You received this email because .+$`),
	regexp.MustCompile(`(?im)^(To )?unsubscribe.*$`),
	regexp.MustCompile(`(?im)^View this email in your browser.*$`),
}

var (
	spaceRuns     = regexp.MustCompile(`[ \t]+`)
	trailingSpace = regexp.MustCompile(`(?m)[ \t]+$`)
	blankRuns     = regexp.MustCompile(`\n{3,}`)
)

// Options tunes the two heuristics of the pipeline.
type Options struct {
	// SignatureThreshold is the fraction of the text a signature marker
	// must start after to be cut.
	SignatureThreshold float64
	// WordBoundaryRatio is the fraction of maxLength after which a
	// truncation prefers the last space.
	WordBoundaryRatio float64
}

// Cleaner applies the preview pipeline. The zero value is not usable; use New.
type Cleaner struct {
	opts Options
}

// New returns a Cleaner; zero options take the defaults.
func New(opts Options) *Cleaner {
	if opts.SignatureThreshold <= 0 || opts.SignatureThreshold > 1 {
		opts.SignatureThreshold = DefaultSignatureThreshold
	}
	if opts.WordBoundaryRatio <= 0 || opts.WordBoundaryRatio >= 1 {
		opts.WordBoundaryRatio = DefaultWordBoundaryRatio
	}
	return &Cleaner{opts: opts}
}

// CleanBody returns the readable part of a message. Plain text is preferred
// over HTML; a message with neither yields the no-content placeholder.
func (c *Cleaner) CleanBody(bodyText, bodyHTML string) string {
	var text string
	switch {
	case bodyText != "":
		text = bodyText
	case bodyHTML != "":
		text = HTMLToText(bodyHTML)
	default:
		return models.NoContent
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = RemoveHeaders(text)
	text = RemoveQuoted(text)
	text = c.RemoveSignature(text)
	text = NormalizeWhitespace(text)

	if text == "" {
		return models.NoContent
	}
	return text
}

// Preview cleans the body and truncates it to maxLength runes.
func (c *Cleaner) Preview(bodyText, bodyHTML string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultPreviewLength
	}
	return c.Truncate(c.CleanBody(bodyText, bodyHTML), maxLength)
}

// Truncate cuts s to at most maxLength runes plus an ellipsis. The cut
// moves back to the last space when that space lies beyond
// WordBoundaryRatio of the limit.
func (c *Cleaner) Truncate(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}

	truncated := runes[:maxLength]
	lastSpace := -1
	for i := len(truncated) - 1; i >= 0; i-- {
		if truncated[i] == ' ' {
			lastSpace = i
			break
		}
	}

	if float64(lastSpace) > float64(maxLength)*c.opts.WordBoundaryRatio {
		truncated = truncated[:lastSpace]
	}
	return string(truncated) + ellipsis
}

// RemoveSignature cuts the text at the earliest signature marker that
// starts after SignatureThreshold of its length. Markers earlier in the
// text are left alone.
func (c *Cleaner) RemoveSignature(text string) string {
	limit := float64(len(text)) * c.opts.SignatureThreshold
	cut := -1

	for _, marker := range signatureMarkers {
		for _, loc := range marker.FindAllStringIndex(text, -1) {
			if float64(loc[0]) <= limit {
				continue
			}
			if cut == -1 || loc[0] < cut {
				cut = loc[0]
			}
			break
		}
	}

	if cut == -1 {
		return text
	}
	return strings.TrimSpace(text[:cut])
}

// RemoveHeaders drops mail header lines that leaked into the body.
func RemoveHeaders(text string) string {
	return headerLines.ReplaceAllString(text, "")
}

// RemoveQuoted drops quoted lines, reply attributions in English, French,
// Spanish and German, and forwarded-message markers.
func RemoveQuoted(text string) string {
	text = quotedLines.ReplaceAllString(text, "")
	for _, pattern := range replyPatterns {
		text = pattern.ReplaceAllString(text, "")
	}
	return text
}

// NormalizeWhitespace collapses blank space and trims the result.
func NormalizeWhitespace(text string) string {
	text = spaceRuns.ReplaceAllString(text, " ")
	text = trailingSpace.ReplaceAllString(text, "")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
