package utils

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// SupportedLanguages lists the locales shipped in the locales directory.
// The first one is the fallback.
var SupportedLanguages = []language.Tag{language.English, language.Japanese}

var (
	// Bundle is the global translation bundle
	Bundle *i18n.Bundle

	matcher = language.NewMatcher(SupportedLanguages)

	localizersMu sync.RWMutex
	localizers   = map[string]*i18n.Localizer{}
)

// InitI18n loads active.<lang>.toml for every supported language from dir.
// The fallback language must load; the others only warn.
func InitI18n(dir string) error {
	bundle := i18n.NewBundle(SupportedLanguages[0])
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	for i, tag := range SupportedLanguages {
		path := filepath.Join(dir, "active."+tag.String()+".toml")
		if _, err := bundle.LoadMessageFile(path); err != nil {
			if i == 0 {
				return fmt.Errorf("load %s: %w", path, err)
			}
			Log.Warn("Failed to load locale %s: %v", tag, err)
		}
	}

	localizersMu.Lock()
	Bundle = bundle
	localizers = map[string]*i18n.Localizer{}
	localizersMu.Unlock()

	Log.Info("i18n system initialized from %s", dir)
	return nil
}

// MatchLanguage picks the best supported language for a raw preference
// such as a query value or an Accept-Language header.
func MatchLanguage(prefs ...string) string {
	for _, pref := range prefs {
		if pref == "" {
			continue
		}
		tags, _, err := language.ParseAcceptLanguage(pref)
		if err != nil || len(tags) == 0 {
			continue
		}
		_, idx, conf := matcher.Match(tags...)
		if conf != language.No {
			return SupportedLanguages[idx].String()
		}
	}
	return SupportedLanguages[0].String()
}

// GetLocalizer returns the shared localizer for lang.
func GetLocalizer(lang string) *i18n.Localizer {
	if lang == "" {
		lang = SupportedLanguages[0].String()
	}

	localizersMu.RLock()
	l, ok := localizers[lang]
	localizersMu.RUnlock()
	if ok {
		return l
	}

	localizersMu.Lock()
	defer localizersMu.Unlock()
	if Bundle == nil {
		Bundle = i18n.NewBundle(SupportedLanguages[0])
	}
	l = i18n.NewLocalizer(Bundle, lang)
	localizers[lang] = l
	return l
}

// T translates a message ID. Missing messages render as their ID.
func T(localizer *i18n.Localizer, messageID string) string {
	return localize(localizer, &i18n.LocalizeConfig{MessageID: messageID})
}

// TPlural translates a message ID with plural support; {{.Count}} is
// available to the message.
func TPlural(localizer *i18n.Localizer, messageID string, count int) string {
	return localize(localizer, &i18n.LocalizeConfig{
		MessageID:    messageID,
		PluralCount:  count,
		TemplateData: map[string]interface{}{"Count": count},
	})
}

func localize(localizer *i18n.Localizer, cfg *i18n.LocalizeConfig) string {
	if localizer == nil {
		return cfg.MessageID
	}
	msg, err := localizer.Localize(cfg)
	if err != nil {
		Log.Debug("Translation error for '%s': %v", cfg.MessageID, err)
		return cfg.MessageID
	}
	return msg
}
