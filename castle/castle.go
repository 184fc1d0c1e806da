// Package castle holds the patch rules for the Belgian castles site.
//
// Rules are declared in a fixed order; rules that depend on the output of
// another rule name it in After and are reordered by patch.Order.
package castle

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"castlepatch/catalog"
	"castlepatch/match"
	"castlepatch/patch"
)

// PagePatterns are the file name globs of individual castle pages.
var PagePatterns = []string{
	"kasteel-*.html", "chateau-*.html", "citadel-*.html", "burcht-*.html",
	"hof-*.html", "de-*.html", "het-*.html", "sint-*.html", "koninklijk-*.html",
	"waterslot-*.html", "vrieselhof-*.html", "rentmeesterij-*.html",
	"commanderij-*.html", "domein-*.html", "oud-*.html", "bisschoppenhof-*.html",
	"braemkasteel-*.html", "burchtruine-*.html", "gaverkasteel-*.html",
}

type Site struct {
	Name        string
	Catalog     *catalog.Catalog
	Pages       *match.Matcher
	Cards       *match.Matcher
	ImagePrefix string
}

// Rules returns every site rule in declaration order.
func (s *Site) Rules() []patch.Rule {
	return []patch.Rule{
		s.titlePrefixRule(),
		s.pageTitleRule(),
		s.breadcrumbRule(),
		s.introLinksRule(),
		s.imageRule(),
		s.revealMediaRule(),
		s.addressRule(),
		s.openingHoursRule(),
		s.hoursNoteRule(),
		s.faqRule(),
		s.cardImagesRule(),
		s.provinceTitlesRule(),
		s.provinceCardImagesRule(),
		faqScriptRule(),
		styleRule("image-styles", imageStylesMarker, imageStyles),
		styleRule("faq-styles", faqStylesMarker, faqStyles),
		styleRule("breadcrumb-styles", breadcrumbStylesMarker, breadcrumbStyles),
	}
}

// Select returns the named rules from all, plus every rule they depend on,
// in the order of all. An empty names selects everything.
func Select(all []patch.Rule, names []string) ([]patch.Rule, error) {
	if len(names) == 0 {
		return all, nil
	}

	byName := make(map[string]patch.Rule, len(all))
	for _, r := range all {
		byName[r.Name] = r
	}

	want := make(map[string]bool)
	var visit func(name string) error
	visit = func(name string) error {
		if want[name] {
			return nil
		}
		r, ok := byName[name]
		if !ok {
			return fmt.Errorf("unknown rule %q (known: %s)", name, strings.Join(Names(all), ", "))
		}
		want[name] = true
		for _, dep := range r.After {
			if err := visit(dep); err != nil {
				return err
			}
		}
		return nil
	}
	for _, n := range names {
		if err := visit(strings.TrimSpace(n)); err != nil {
			return nil, err
		}
	}

	var selected []patch.Rule
	for _, r := range all {
		if want[r.Name] {
			selected = append(selected, r)
		}
	}
	return selected, nil
}

func Names(rules []patch.Rule) []string {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.Name
	}
	return names
}

var (
	rePrefixWords = regexp.MustCompile(`(?i)^(kasteel|chateau|château|citadel|burcht|hof|het|de|la|le|du|van|te|der|des)\s+`)
	titleCaser    = cases.Title(language.Dutch)
)

// CastleName derives a display name from a castle page file name,
// e.g. "kasteel-van-freyr-freyr.html" -> "Van Freyr Freyr".
func CastleName(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name = strings.ReplaceAll(name, "-", " ")
	name = rePrefixWords.ReplaceAllString(name, "")
	return titleCaser.String(name)
}

func (s *Site) lookup(entries []catalog.Entry, path string) (catalog.Entry, bool) {
	return catalog.Lookup(entries, s.Pages, filepath.Base(path))
}
