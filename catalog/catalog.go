package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"castlepatch/match"
)

// Entry is a named resource that can be injected into a page.
type Entry struct {
	RawName string
	Key     string
	Payload any
}

func NewEntry(rawName string, payload any) Entry {
	return Entry{RawName: rawName, Key: match.Normalize(rawName), Payload: payload}
}

type Province struct {
	ID     string   `yaml:"id"`
	Name   string   `yaml:"name"`
	Places []string `yaml:"places"`
}

// DayHours is one row of a weekly opening-hours table.
type DayHours struct {
	Day   string `yaml:"day"`
	Hours string `yaml:"hours"`
}

type Hours struct {
	Days []DayHours `yaml:"days"`
	Note string     `yaml:"note"`
}

type FAQItem struct {
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
	// AnswerHTML is Answer rendered from org markup at load time.
	AnswerHTML string `yaml:"-"`
}

type FAQSet struct {
	Title string    `yaml:"title"`
	Items []FAQItem `yaml:"items"`
}

type Catalog struct {
	Provinces       []Province
	DefaultProvince Province
	Addresses       []Entry
	Hours           []Entry
	DefaultHours    *Hours
	FAQs            []Entry
	FAQTemplates    map[string]FAQSet
	Images          []Entry
}

type fileFormat struct {
	Provinces       []Province `yaml:"provinces"`
	DefaultProvince string     `yaml:"default_province"`
	Addresses       []struct {
		Page    string `yaml:"page"`
		Address string `yaml:"address"`
	} `yaml:"addresses"`
	Hours []struct {
		Page  string `yaml:"page"`
		Hours `yaml:",inline"`
	} `yaml:"hours"`
	DefaultHours *Hours `yaml:"default_hours"`
	FAQs         []struct {
		Page   string `yaml:"page"`
		FAQSet `yaml:",inline"`
	} `yaml:"faqs"`
	FAQTemplates map[string]FAQSet `yaml:"faq_templates"`
}

// Load reads the YAML catalog at path. A missing file yields an empty catalog.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Debug("No catalog file, using empty catalog", "path", path)
			return &Catalog{FAQTemplates: map[string]FAQSet{}}, nil
		}
		return nil, fmt.Errorf("error reading catalog: %w", err)
	}
	cat, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing catalog %s: %w", path, err)
	}
	return cat, nil
}

// Parse decodes a YAML catalog and renders FAQ answers to HTML.
// Entry order follows document order.
func Parse(data []byte) (*Catalog, error) {
	var ff fileFormat
	if err := yaml.Unmarshal(data, &ff); err != nil {
		return nil, err
	}

	cat := &Catalog{
		Provinces:    ff.Provinces,
		DefaultHours: ff.DefaultHours,
		FAQTemplates: map[string]FAQSet{},
	}

	for _, p := range ff.Provinces {
		if p.ID == ff.DefaultProvince {
			cat.DefaultProvince = p
		}
	}
	if ff.DefaultProvince != "" && cat.DefaultProvince.ID == "" {
		return nil, fmt.Errorf("default_province %q is not a listed province", ff.DefaultProvince)
	}

	for _, a := range ff.Addresses {
		cat.Addresses = append(cat.Addresses, NewEntry(a.Page, a.Address))
	}
	for _, h := range ff.Hours {
		cat.Hours = append(cat.Hours, NewEntry(h.Page, h.Hours))
	}
	for _, f := range ff.FAQs {
		set, err := renderFAQSet(f.FAQSet)
		if err != nil {
			return nil, fmt.Errorf("faq for %s: %w", f.Page, err)
		}
		cat.FAQs = append(cat.FAQs, NewEntry(f.Page, set))
	}
	for name, tmpl := range ff.FAQTemplates {
		set, err := renderFAQSet(tmpl)
		if err != nil {
			return nil, fmt.Errorf("faq template %s: %w", name, err)
		}
		cat.FAQTemplates[name] = set
	}

	return cat, nil
}

var imageExts = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// ScanImages lists image files in dir as entries in lexicographic order.
// A missing directory yields no entries.
func ScanImages(dir string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("error reading image directory: %w", err)
	}

	var names []string
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(de.Name()))
		for _, e := range imageExts {
			if ext == e {
				names = append(names, de.Name())
				break
			}
		}
	}
	sort.Strings(names)

	entries := make([]Entry, 0, len(names))
	for _, n := range names {
		entries = append(entries, NewEntry(n, n))
	}
	slog.Debug("Scanned images", "dir", dir, "count", len(entries))
	return entries, nil
}

// Lookup finds the entry best matching key with m.
func Lookup(entries []Entry, m *match.Matcher, key string) (Entry, bool) {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.RawName
	}
	idx, _, ok := m.Best(key, names)
	if !ok {
		return Entry{}, false
	}
	return entries[idx], true
}

// ProvinceFor returns the first province with a place name contained in
// filename, or the default province.
func (c *Catalog) ProvinceFor(filename string) (Province, bool) {
	lower := strings.ToLower(filepath.Base(filename))
	for _, p := range c.Provinces {
		for _, place := range p.Places {
			if place != "" && strings.Contains(lower, strings.ToLower(place)) {
				return p, true
			}
		}
	}
	if c.DefaultProvince.ID != "" {
		return c.DefaultProvince, true
	}
	return Province{}, false
}
