// Package i18n resolves user-facing messages from the bundled catalogs.
//
// Catalogs use the browser extension messages.json layout: every key maps to
// a message with optional named placeholders whose content refers to
// positional substitutions ($1..$9).
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

// DefaultLanguage is used when no preference matches a bundled catalog
const DefaultLanguage = "en"

//go:embed locales/*/messages.json
var localesFS embed.FS

// supported lists the bundled catalogs; the first entry is the fallback
var supported = []string{"en", "zh_CN"}

var matcher = language.NewMatcher([]language.Tag{
	language.English,
	language.MustParse("zh-CN"),
})

var (
	namedPlaceholder = regexp.MustCompile(`\$([A-Za-z0-9_@]+)\$`)
	positional       = regexp.MustCompile(`\$([1-9])`)
)

type entry struct {
	Message      string `json:"message"`
	Placeholders map[string]struct {
		Content string `json:"content"`
	} `json:"placeholders"`
}

type catalog map[string]entry

// Localizer resolves messages for one language. It holds its catalogs, so
// there is no process-wide cache to keep in sync.
type Localizer struct {
	lang     string
	messages catalog
	fallback catalog
}

// Supported returns the language codes of the bundled catalogs
func Supported() []string {
	return append([]string(nil), supported...)
}

// Match maps a preference such as "zh", "zh_CN", "en-US" or "zh_CN.UTF-8"
// to a bundled catalog code, defaulting to English.
func Match(preference string) string {
	pref := strings.TrimSpace(preference)
	if i := strings.IndexAny(pref, ".@"); i != -1 {
		pref = pref[:i]
	}
	pref = strings.ReplaceAll(pref, "_", "-")
	if pref == "" || strings.EqualFold(pref, "C") || strings.EqualFold(pref, "POSIX") {
		return DefaultLanguage
	}

	tag, err := language.Parse(pref)
	if err != nil {
		return DefaultLanguage
	}
	_, index, confidence := matcher.Match(tag)
	if confidence == language.No {
		return DefaultLanguage
	}
	return supported[index]
}

// New creates a Localizer for the first preference that is set. Pass the
// stored language setting first and system defaults after it.
func New(preferences ...string) (*Localizer, error) {
	lang := DefaultLanguage
	for _, pref := range preferences {
		if strings.TrimSpace(pref) != "" {
			lang = Match(pref)
			break
		}
	}

	fallback, err := load(DefaultLanguage)
	if err != nil {
		return nil, err
	}
	messages := fallback
	if lang != DefaultLanguage {
		if messages, err = load(lang); err != nil {
			return nil, err
		}
	}

	return &Localizer{lang: lang, messages: messages, fallback: fallback}, nil
}

// MustNew is New for the bundled catalogs, which always parse
func MustNew(preferences ...string) *Localizer {
	l, err := New(preferences...)
	if err != nil {
		panic(err)
	}
	return l
}

func load(lang string) (catalog, error) {
	raw, err := localesFS.ReadFile("locales/" + lang + "/messages.json")
	if err != nil {
		return nil, fmt.Errorf("no catalog for %s: %w", lang, err)
	}
	var c catalog
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", lang, err)
	}
	return c, nil
}

// Language returns the resolved catalog code
func (l *Localizer) Language() string {
	return l.lang
}

// Message returns the localized message for key, falling back to English
// and then to the key itself. subs fill $1..$9.
func (l *Localizer) Message(key string, subs ...string) string {
	e, ok := l.messages[key]
	if !ok {
		if e, ok = l.fallback[key]; !ok {
			return key
		}
	}
	return e.format(subs)
}

func (e entry) format(subs []string) string {
	msg := namedPlaceholder.ReplaceAllStringFunc(e.Message, func(m string) string {
		name := strings.ToLower(m[1 : len(m)-1])
		for k, p := range e.Placeholders {
			if strings.ToLower(k) == name {
				return p.Content
			}
		}
		return m
	})

	return positional.ReplaceAllStringFunc(msg, func(m string) string {
		n, _ := strconv.Atoi(m[1:])
		if n <= len(subs) {
			return subs[n-1]
		}
		return ""
	})
}
