package notifier

import (
	"context"
	"html"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"

	"github.com/0x0BSoD/chatfeed/internal/model"
)

// messageLimit is the longest text the Telegram bot API accepts in one message,
// counted after entities are parsed. Titles and links are capped so that the
// two of them always fit.
const (
	messageLimit = 4096
	titleLimit   = 1024
	linkLimit    = messageLimit - titleLimit - 1
)

type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Formatter renders entries as HTML chat messages.
type Formatter struct {
	summarizer Summarizer
	log        *slog.Logger
}

func NewFormatter(summarizer Summarizer, log *slog.Logger) *Formatter {
	if log == nil {
		log = slog.Default()
	}
	return &Formatter{summarizer: summarizer, log: log}
}

var (
	redundantNewLines = regexp.MustCompile(`\n{3,}`)
	htmlTags          = regexp.MustCompile(`<[^>]*>`)
)

func (f *Formatter) Format(ctx context.Context, entry model.Entry) string {
	title := truncate(strings.TrimSpace(entry.Title), titleLimit)

	if !entry.Digest {
		return "<b>" + html.EscapeString(title) + "</b>\n" + html.EscapeString(truncate(entry.Link, linkLimit))
	}

	budget := messageLimit - utf8.RuneCountInString(title) - 1
	body := f.condense(ctx, bodyText(entry.RichBody), budget)

	return "<b>" + html.EscapeString(title) + "</b>\n" + html.EscapeString(body)
}

func (f *Formatter) condense(ctx context.Context, text string, budget int) string {
	if utf8.RuneCountInString(text) <= budget {
		return text
	}

	if f.summarizer != nil {
		summary, err := f.summarizer.Summarize(ctx, text)
		if err != nil {
			f.log.Error("failed to summarize digest", "err", err)
		} else {
			text = strings.TrimSpace(summary)
		}
	}

	return truncate(text, budget)
}

func bodyText(rich string) string {
	text := ""
	if doc, err := readability.FromReader(strings.NewReader(rich), nil); err == nil {
		text = doc.TextContent
	}
	if strings.TrimSpace(text) == "" {
		text = htmlTags.ReplaceAllString(rich, "")
	}
	return strings.TrimSpace(cleanupText(text))
}

func cleanupText(text string) string {
	return redundantNewLines.ReplaceAllString(text, "\n")
}

func truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit-1]) + "…"
}
