package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"labelmail/cleaner"
	"labelmail/config"
	"labelmail/models"
	"labelmail/sanitize"
	"labelmail/threading"
)

// readInput returns the file named by args, or stdin for none or "-".
func readInput(cmd *cobra.Command, args []string) (string, bool, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", false, fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), false, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	ext := strings.ToLower(filepath.Ext(args[0]))
	return string(data), ext == ".html" || ext == ".htm", nil
}

// looksLikeHTML is the fallback when neither a flag nor an extension says
// what the input is.
func looksLikeHTML(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(s, "<!doctype") || strings.HasPrefix(s, "<html") ||
		strings.Contains(s, "<body") || strings.Contains(s, "<p>") || strings.Contains(s, "<div")
}

func newPreviewCmd() *cobra.Command {
	var (
		maxLength int
		asHTML    bool
		full      bool
	)
	defaults := config.Default()

	cmd := &cobra.Command{
		Use:   "preview [file]",
		Short: "Print the cleaned preview of an email body",
		Long: `Print the preview labelmail shows in message lists for a text or HTML
body. Quoted replies, header blocks and trailing signatures are removed.
The body is read from the file, or from stdin when none is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, isHTML, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			isHTML = isHTML || asHTML || looksLikeHTML(body)

			c := cleaner.New(cleaner.Options{
				SignatureThreshold: defaults.Cleaner.SignatureThreshold,
				WordBoundaryRatio:  defaults.Cleaner.WordBoundaryRatio,
			})

			var text, html string
			if isHTML {
				html = body
			} else {
				text = body
			}

			out := c.Preview(text, html, maxLength)
			if full {
				out = c.CleanBody(text, html)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().IntVarP(&maxLength, "max-length", "n", defaults.Mail.PreviewLength, "Maximum preview length in characters")
	cmd.Flags().BoolVar(&asHTML, "html", false, "Treat the input as HTML")
	cmd.Flags().BoolVar(&full, "full", false, "Print the whole cleaned body without truncating")

	return cmd
}

func newSanitizeCmd() *cobra.Command {
	var asText bool
	defaults := config.Default()

	cmd := &cobra.Command{
		Use:   "sanitize [file]",
		Short: "Print an email body as the HTML labelmail renders",
		Long: `Print the sanitized HTML labelmail renders for an email body. HTML is
filtered through the allowlist policy; plain text is escaped and its line
breaks kept. The body is read from the file, or from stdin when none is
given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, _, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			s := sanitize.New(sanitize.Options{
				ImageStyles: defaults.Sanitizer.ImageStyles,
				TextStyles:  defaults.Sanitizer.TextStyles,
			})

			var out string
			if asText {
				out = s.Body("", body)
			} else {
				out = s.Body(body, "")
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asText, "text", false, "Treat the input as plain text")

	return cmd
}

func newThreadQueryCmd() *cobra.Command {
	var target models.Email

	cmd := &cobra.Command{
		Use:   "thread-query",
		Short: "Print the Gmail search query that finds a conversation",
		Long: `Print the Gmail search query used to load the conversation of a message
from its Message-ID, In-Reply-To and References headers, falling back to
the subject when none is set.`,
		Example: `  labelmail thread-query --references "<a@example.com> <b@example.com>"
  labelmail thread-query --subject "Quarterly report"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := threading.BuildQuery(target)
			if query == "" {
				return fmt.Errorf("at least one of --message-id, --in-reply-to, --references or --subject is required")
			}
			fmt.Fprintln(cmd.OutOrStdout(), query)
			return nil
		},
	}

	cmd.Flags().StringVar(&target.MessageID, "message-id", "", "Message-ID header")
	cmd.Flags().StringVar(&target.InReplyTo, "in-reply-to", "", "In-Reply-To header")
	cmd.Flags().StringVar(&target.References, "references", "", "References header")
	cmd.Flags().StringVar(&target.Subject, "subject", "", "Subject header")

	return cmd
}
