package cmd

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/template/html/v2"

	"labelmail/utils"
)

// newViews loads the templates in dir and registers the helpers they use.
func newViews(dir string, reload bool) *html.Engine {
	engine := html.New(dir, ".html")

	engine.AddFunc("join", strings.Join)
	engine.AddFunc("lower", strings.ToLower)
	engine.AddFunc("trim", strings.TrimSpace)
	engine.AddFunc("hasPrefix", strings.HasPrefix)
	engine.AddFunc("pathEscape", url.PathEscape)
	engine.AddFunc("queryEscape", url.QueryEscape)

	// t looks the message up in the language the locale middleware picked.
	engine.AddFunc("t", translate)
	engine.AddFunc("tPlural", func(lang interface{}, messageID string, count int) string {
		return utils.TPlural(utils.GetLocalizer(langOf(lang)), messageID, count)
	})

	engine.AddFunc("formatDate", formatDate)
	engine.AddFunc("formatSize", formatSize)

	engine.Reload(reload)
	return engine
}

func langOf(lang interface{}) string {
	if s, ok := lang.(string); ok && s != "" {
		return s
	}
	return "en"
}

func translate(lang interface{}, messageID string) string {
	return utils.T(utils.GetLocalizer(langOf(lang)), messageID)
}

// formatDate shows the time of day for today and the date otherwise.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	if t.Year() == now.Year() {
		return t.Format("Jan 02")
	}
	return t.Format("Jan 02, 2006")
}

func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
