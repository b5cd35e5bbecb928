// Package po provides a PO-file-backed implementation of msg.Provider.
package po

import (
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/robfig/gettext/po"
	"github.com/robfig/miso/msg"
	"golang.org/x/text/language"
)

type provider struct {
	bundles map[string]msg.Bundle
}

// FileOpener opens a po file given a locale.
type FileOpener interface {
	// Open returns a ReadCloser for the po file indicated by locale. It
	// returns a nil reader if the file does not exist.
	Open(locale string) (io.ReadCloser, error)
}

// Load returns a msg.Provider backed by the PO files served by opener for
// each of the given locales. Missing locales fall back to a more general
// one (e.g. "fr_CA" falls back to "fr") as long as the fallback files are
// in canonical form.
func Load(opener FileOpener, locales []string) (msg.Provider, error) {
	var prov = provider{make(map[string]msg.Bundle)}
	for _, locale := range locales {
		r, err := opener.Open(locale)
		if err != nil {
			return nil, err
		} else if r == nil {
			localeTag, err := language.Parse(locale)
			if err != nil {
				return nil, err
			}
			for _, fallbackLocale := range fallbacks(localeTag) {
				r, err = opener.Open(fallbackLocale.String())
				if err != nil {
					return nil, err
				}
				if r != nil {
					break
				}
			}
			if r == nil {
				continue
			}
		}

		pofile, err := po.Parse(r)
		r.Close()
		if err != nil {
			return nil, err
		}

		b, err := newBundle(locale, pofile)
		if err != nil {
			return nil, err
		}
		prov.bundles[locale] = b
	}
	return prov, nil
}

// fsFileOpener is a FileOpener rooted at a directory on disk.
type fsFileOpener struct {
	Dirname string
}

func (o fsFileOpener) Open(locale string) (io.ReadCloser, error) {
	switch f, err := os.Open(path.Join(o.Dirname, locale+".po")); {
	case os.IsNotExist(err):
		return nil, nil
	case err != nil:
		return nil, err
	default:
		return f, nil
	}
}

// Dir returns a msg.Provider that takes translations from the given path.
// PO files are expected to be named <lang>.po or <lang>_<territory>.po.
func Dir(dirname string) (msg.Provider, error) {
	var files, err = os.ReadDir(dirname)
	if err != nil {
		return nil, err
	}
	var locales []string
	for _, fi := range files {
		var name = fi.Name()
		if !fi.IsDir() && strings.HasSuffix(name, ".po") {
			locales = append(locales, name[:len(name)-3])
		}
	}
	return Load(fsFileOpener{dirname}, locales)
}

func (p provider) Bundle(locale string) msg.Bundle {
	bundle, ok := p.bundles[locale]
	if !ok {
		tag, err := language.Parse(locale)
		if err != nil {
			return nil
		}
		for _, fb := range fallbacks(tag) {
			bundle, ok = p.bundles[fb.String()]
			if ok {
				break
			}
		}
	}
	return bundle
}

type bundle struct {
	messages  map[uint64]msg.Message
	locale    string
	pluralize po.PluralSelector
}

func newBundle(locale string, file po.File) (*bundle, error) {
	var pluralize = file.Pluralize
	if pluralize == nil {
		pluralize = po.PluralSelectorForLanguage(locale)
	}
	if pluralize == nil {
		return nil, fmt.Errorf("Plural-Forms must be specified")
	}

	var err error
	var msgs = make(map[uint64]msg.Message)
	for _, m := range file.Messages {
		var id uint64
		var varName string
		for _, ref := range m.References {
			switch {
			case strings.HasPrefix(ref, "id="):
				id, err = strconv.ParseUint(ref[3:], 10, 64)
				if err != nil {
					return nil, err
				}
			case strings.HasPrefix(ref, "var="):
				varName = ref[len("var="):]
			}
		}
		if id == 0 {
			return nil, fmt.Errorf("no id found in message: %#v", m)
		}
		msgs[id] = newMessage(id, varName, m.Str)
	}
	return &bundle{msgs, locale, pluralize}, nil
}

func (b *bundle) Message(id uint64) *msg.Message {
	var m, ok = b.messages[id]
	if !ok {
		return nil
	}
	return &m
}

func (b *bundle) Locale() string {
	return b.locale
}

func (b *bundle) PluralCase(n int) int {
	return b.pluralize(n)
}

func newMessage(id uint64, varName string, msgstrs []string) msg.Message {
	if varName == "" && len(msgstrs) == 1 {
		return msg.Message{ID: id, Parts: msg.Parts(msgstrs[0])}
	}

	var cases []msg.PluralCase
	for _, msgstr := range msgstrs {
		cases = append(cases, msg.PluralCase{
			Spec:  msg.PluralSpec{Type: msg.PluralSpecOther, ExplicitValue: -1}, // resolved via PluralCase()
			Parts: msg.Parts(msgstr),
		})
	}
	return msg.Message{ID: id, Parts: []msg.Part{msg.PluralPart{
		VarName: varName,
		Cases:   cases,
	}}}
}
