package castle

import (
	"fmt"
	"html"
	"path"
	"regexp"
	"strings"

	"castlepatch/catalog"
	"castlepatch/match"
	"castlepatch/patch"
)

var (
	reDetailTitle = regexp.MustCompile(`<h1 class="detail-title">([^<]+)</h1>`)
	rePageTitle   = regexp.MustCompile(`<title>([^<]*)</title>`)
)

// Titles starting with one of these words already name the building type.
var titleSkipWords = []string{
	"kasteel", "château", "chateau", "citadel", "citadelle", "burcht",
	"burchtruine", "hof", "bisschoppenhof", "commanderij", "domein", "het",
	"de", "waterslot", "vrieselhof", "rentmeesterij", "oud", "koninklijk",
	"sint", "graaf",
}

func needsPrefix(title string) bool {
	first, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(title)), " ")
	for _, w := range titleSkipWords {
		if first == w {
			return false
		}
	}
	return strings.TrimSpace(title) != ""
}

func detailTitle(content string) (string, bool) {
	m := reDetailTitle.FindStringSubmatch(content)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

func (s *Site) titlePrefixRule() patch.Rule {
	return patch.Rule{
		Name:    "title-prefix",
		Only:    PagePatterns,
		Locator: patch.Pattern{Regexp: reDetailTitle, Group: 1},
		Applied: func(content string, _ any) bool {
			title, ok := detailTitle(content)
			return ok && !needsPrefix(title)
		},
		Render: func(_ any, t patch.Target) (string, error) {
			return "Kasteel " + strings.TrimSpace(t.Text), nil
		},
	}
}

// The <title> follows the page heading: "<heading> | <site>".
func (s *Site) pageTitleRule() patch.Rule {
	return patch.Rule{
		Name:    "page-title",
		After:   []string{"title-prefix"},
		Only:    PagePatterns,
		Locator: patch.Pattern{Regexp: rePageTitle, Group: 1},
		Resolve: func(doc patch.Document) (any, bool) {
			return detailTitle(doc.Content)
		},
		Applied: func(content string, payload any) bool {
			m := rePageTitle.FindStringSubmatch(content)
			return m != nil && strings.TrimSpace(m[1]) == s.pageTitle(payload.(string))
		},
		Render: func(payload any, _ patch.Target) (string, error) {
			return s.pageTitle(payload.(string)), nil
		},
	}
}

func (s *Site) pageTitle(heading string) string {
	return heading + " | " + s.Name
}

type crumb struct {
	Province catalog.Province
	Castle   string
}

func (s *Site) breadcrumbRule() patch.Rule {
	return patch.Rule{
		Name:    "breadcrumb",
		Only:    PagePatterns,
		Locator: patch.Elem("section.detail-header div.container", patch.AfterOpen),
		Applied: patch.Contains(`class="breadcrumb"`),
		Resolve: func(doc patch.Document) (any, bool) {
			p, ok := s.Catalog.ProvinceFor(doc.Path)
			if !ok {
				return nil, false
			}
			name, ok := detailTitle(doc.Content)
			if !ok {
				name = CastleName(doc.Path)
			}
			return crumb{Province: p, Castle: name}, true
		},
		Render: func(payload any, _ patch.Target) (string, error) {
			c := payload.(crumb)
			return fmt.Sprintf(`
        <nav class="breadcrumb" aria-label="Breadcrumb">
          <a href="index.html">Home</a>
          <span class="breadcrumb-separator">›</span>
          <a href="index.html#provincies">Provincies</a>
          <span class="breadcrumb-separator">›</span>
          <a href="%s.html">%s</a>
          <span class="breadcrumb-separator">›</span>
          <span class="breadcrumb-current">%s</span>
        </nav>`,
				html.EscapeString(c.Province.ID), html.EscapeString(c.Province.Name),
				html.EscapeString(c.Castle)), nil
		},
	}
}

var (
	reParagraph = regexp.MustCompile(`(?s)<p>\s*(.*?)\s*</p>`)
	introElem   = patch.Elem("div.intro", patch.ReplaceInner)
)

// introLocator finds the intro block only when it has the two paragraphs the
// links go into.
type introLocator struct{}

func (introLocator) Locate(content string) (patch.Target, bool) {
	t, ok := introElem.Locate(content)
	if !ok || len(reParagraph.FindAllStringIndex(t.Text, 2)) < 2 {
		return patch.Target{}, false
	}
	return t, true
}

const belgiumLink = `<a href="index.html#provincies">kastelen in België</a>`

// The intro links the first paragraph to the overview and the second to the
// castle's province page.
func (s *Site) introLinksRule() patch.Rule {
	return patch.Rule{
		Name:    "intro-links",
		Only:    PagePatterns,
		Locator: introLocator{},
		Applied: func(content string, _ any) bool {
			t, ok := introElem.Locate(content)
			return ok && strings.Contains(t.Text, "<a href=")
		},
		Resolve: func(doc patch.Document) (any, bool) {
			return s.Catalog.ProvinceFor(doc.Path)
		},
		Render: func(payload any, t patch.Target) (string, error) {
			return linkIntro(t.Text, payload.(catalog.Province)), nil
		},
	}
}

func linkIntro(inner string, p catalog.Province) string {
	locs := reParagraph.FindAllStringSubmatchIndex(inner, 2)
	if len(locs) < 2 {
		return inner
	}

	first := inner[locs[0][2]:locs[0][3]]
	second := inner[locs[1][2]:locs[1][3]]
	provinceLink := fmt.Sprintf(`<a href="%s.html">kastelen in %s</a>`,
		html.EscapeString(p.ID), html.EscapeString(p.Name))

	newFirst := linkFirstSentence(first)
	newSecond := linkLastSentence(second, provinceLink)

	// Splice the later paragraph first so the earlier offsets stay valid.
	out := inner[:locs[1][2]] + newSecond + inner[locs[1][3]:]
	return out[:locs[0][2]] + newFirst + out[locs[0][3]:]
}

func linkFirstSentence(text string) string {
	sentences := strings.Split(text, ". ")
	if !strings.Contains(strings.ToLower(sentences[0]), "kasteel") {
		return text
	}
	suffix := ", een prachtig voorbeeld van de " + belgiumLink + "."
	first := strings.TrimSuffix(sentences[0], ".")
	sentences[0] = first + suffix
	if len(sentences) == 1 {
		return sentences[0]
	}
	// The following sentences were split on ". " and keep their own periods.
	return sentences[0] + " " + strings.Join(sentences[1:], ". ")
}

func linkLastSentence(text, link string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	body := strings.TrimSuffix(strings.TrimSpace(text), ".")
	return body + ", onderdeel van het rijke erfgoed van " + link + "."
}

var (
	reTitleBlock     = regexp.MustCompile(`(?s)<h3>.*</h3>`)
	reLocationSuffix = regexp.MustCompile(`(?i)\s+(te|in)\s+\S+$`)
)

var titleParticles = map[string]bool{
	"van": true, "de": true, "het": true, "der": true, "des": true, "du": true,
	"la": true, "le": true, "te": true, "op": true, "aan": true, "in": true,
}

// uniformTitle drops trailing location words ("te Lennik", or a place of the
// province) from a card title and normalizes its casing.
func uniformTitle(title string, places []string) string {
	t := strings.Join(strings.Fields(html.UnescapeString(title)), " ")
	for {
		next := reLocationSuffix.ReplaceAllString(t, "")
		if next == t {
			next = trimPlace(t, places)
		}
		if next == t || !keepsName(next) {
			break
		}
		t = next
	}

	words := strings.Fields(t)
	for i, w := range words {
		lower := strings.ToLower(w)
		if i > 0 && titleParticles[lower] {
			words[i] = lower
			continue
		}
		words[i] = titleCaser.String(lower)
	}
	return strings.Join(words, " ")
}

func trimPlace(title string, places []string) string {
	i := strings.LastIndexByte(title, ' ')
	if i < 0 {
		return title
	}
	last := match.Normalize(title[i+1:])
	for _, p := range places {
		if match.Normalize(p) == last {
			return title[:i]
		}
	}
	return title
}

// keepsName reports whether a shortened title still names a castle.
func keepsName(title string) bool {
	words := strings.Fields(title)
	return len(title) > 5 && len(words) >= 2 && !titleParticles[strings.ToLower(words[len(words)-1])]
}

func titlesUniform(content string, places []string) bool {
	for _, m := range reCardTitle.FindAllStringSubmatch(content, -1) {
		if html.EscapeString(uniformTitle(m[1], places)) != m[1] {
			return false
		}
	}
	return true
}

// Castle titles on a province page read "Kasteel van Gaasbeek", without the
// town the castle is in.
func (s *Site) provinceTitlesRule() patch.Rule {
	return patch.Rule{
		Name:    "province-titles",
		Only:    s.ProvincePages(),
		Locator: patch.Pattern{Regexp: reTitleBlock},
		Applied: func(content string, payload any) bool {
			return titlesUniform(content, payload.(catalog.Province).Places)
		},
		Resolve: func(doc patch.Document) (any, bool) {
			id := strings.TrimSuffix(path.Base(doc.Path), ".html")
			for _, p := range s.Catalog.Provinces {
				if p.ID == id {
					return p, true
				}
			}
			return nil, false
		},
		Render: func(payload any, t patch.Target) (string, error) {
			places := payload.(catalog.Province).Places
			return reCardTitle.ReplaceAllStringFunc(t.Text, func(h3 string) string {
				title := reCardTitle.FindStringSubmatch(h3)[1]
				return "<h3>" + html.EscapeString(uniformTitle(title, places)) + "</h3>"
			}), nil
		},
	}
}
