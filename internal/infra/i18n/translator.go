package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales
var LocalesFS embed.FS

// DefaultLang is used whenever a language has no catalog of its own.
const DefaultLang = "en-US"

type Translator struct {
	lang         string
	translations map[string]string
	fallback     *Translator
}

// NewTranslator reads locales/<langCode>.yaml from fsys.
func NewTranslator(fsys fs.FS, langCode string) (*Translator, error) {
	filePath := path.Join("locales", fmt.Sprintf("%s.yaml", langCode))

	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read translation file %s: %w", filePath, err)
	}
	t, err := newTranslatorFromBytes(data)
	if err != nil {
		return nil, err
	}
	t.lang = langCode
	return t, nil
}

func newTranslatorFromBytes(data []byte) (*Translator, error) {
	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("failed to parse translation file: %w", err)
	}
	return &Translator{translations: translations}, nil
}

// T formats key with args; missing keys fall back to the default catalog and
// finally to the key itself.
func (t *Translator) T(key string, args ...interface{}) string {
	format, ok := t.translations[key]
	if !ok && t.fallback != nil {
		format, ok = t.fallback.translations[key]
	}
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}

func (t *Translator) Lang() string { return t.lang }

// Catalog holds one Translator per available locale file.
type Catalog struct {
	byLang map[string]*Translator
	def    *Translator
}

// LoadCatalog reads every locales/*.yaml in fsys. The DefaultLang file is required.
func LoadCatalog(fsys fs.FS) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, "locales")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}
	c := &Catalog{byLang: make(map[string]*Translator)}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		code := strings.TrimSuffix(name, ".yaml")
		t, err := NewTranslator(fsys, code)
		if err != nil {
			return nil, err
		}
		c.byLang[code] = t
	}
	def, ok := c.byLang[DefaultLang]
	if !ok {
		return nil, fmt.Errorf("missing %s catalog", DefaultLang)
	}
	c.def = def
	for code, t := range c.byLang {
		if code != DefaultLang {
			t.fallback = def
		}
	}
	return c, nil
}

// For returns the translator for code, or the default one.
func (c *Catalog) For(code string) *Translator {
	if t, ok := c.byLang[code]; ok {
		return t
	}
	return c.def
}
