// Package i18n loads the embedded locale tables: command button labels,
// reply templates and the plural rule used for resident counts.
package i18n

import (
	"embed"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var locales embed.FS

// PluralForm is one of the grammatical number forms a locale distinguishes.
type PluralForm int

const (
	One PluralForm = iota
	Few
	Many
)

const (
	pluralOneOther = "one-other"
	pluralSlavic   = "slavic"
)

type table struct {
	Tag      string            `yaml:"tag"`
	Plural   string            `yaml:"plural"`
	Commands map[string]string `yaml:"commands"`
	Messages map[string]string `yaml:"messages"`
}

// Locale is a loaded translation table. It is immutable after Load.
type Locale struct {
	t table
}

// Supported lists the embedded locale tags in lexical order.
func Supported() []string {
	entries, err := locales.ReadDir("locales")
	if err != nil {
		return nil
	}
	tags := make([]string, 0, len(entries))
	for _, e := range entries {
		tags = append(tags, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(tags)
	return tags
}

// Load parses the embedded table for tag.
func Load(tag string) (*Locale, error) {
	data, err := locales.ReadFile("locales/" + tag + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("locale %q: not available", tag)
	}
	var t table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("locale %q: %w", tag, err)
	}
	if t.Tag != tag {
		return nil, fmt.Errorf("locale %q: table declares tag %q", tag, t.Tag)
	}
	switch t.Plural {
	case pluralOneOther, pluralSlavic:
	default:
		return nil, fmt.Errorf("locale %q: unknown plural rule %q", tag, t.Plural)
	}
	if t.Commands["cancel"] == "" {
		return nil, fmt.Errorf("locale %q: missing cancel label", tag)
	}
	return &Locale{t: t}, nil
}

// MustLoad is Load for tags known to be embedded.
func MustLoad(tag string) *Locale {
	l, err := Load(tag)
	if err != nil {
		panic(err)
	}
	return l
}

// Tag returns the locale identifier.
func (l *Locale) Tag() string { return l.t.Tag }

// Label returns the button text of a command, or "" when the locale has none.
func (l *Locale) Label(command string) string { return l.t.Commands[command] }

// Labels returns a copy of the command label table keyed by command name.
func (l *Locale) Labels() map[string]string {
	out := make(map[string]string, len(l.t.Commands))
	for k, v := range l.t.Commands {
		out[k] = v
	}
	return out
}

// Cancel is the text that aborts a pending dialog.
func (l *Locale) Cancel() string { return l.t.Commands["cancel"] }

// MessageKeys lists the template keys in lexical order.
func (l *Locale) MessageKeys() []string {
	keys := make([]string, 0, len(l.t.Messages))
	for k := range l.t.Messages {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// T renders the template key, replacing {name} placeholders from alternating
// name/value pairs. An unknown key renders as the key itself.
func (l *Locale) T(key string, kv ...string) string {
	msg, ok := l.t.Messages[key]
	if !ok {
		return key
	}
	if len(kv) == 0 {
		return msg
	}
	pairs := make([]string, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		pairs = append(pairs, "{"+kv[i]+"}", kv[i+1])
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

// PluralForm selects the grammatical form for n.
func (l *Locale) PluralForm(n int) PluralForm {
	if l.t.Plural == pluralSlavic {
		return slavicForm(n)
	}
	if n == 1 {
		return One
	}
	return Many
}

// ResidentCount renders "n residents" in the correct plural form.
func (l *Locale) ResidentCount(n int) string {
	key := "svgResidentMany"
	switch l.PluralForm(n) {
	case One:
		key = "svgResidentOne"
	case Few:
		key = "svgResidentFew"
	}
	return l.T(key, "count", strconv.Itoa(n))
}

func slavicForm(n int) PluralForm {
	if n < 0 {
		n = -n
	}
	mod10, mod100 := n%10, n%100
	switch {
	case mod10 == 1 && mod100 != 11:
		return One
	case mod10 >= 2 && mod10 <= 4 && (mod100 < 12 || mod100 > 14):
		return Few
	default:
		return Many
	}
}
