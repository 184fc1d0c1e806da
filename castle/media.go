package castle

import (
	"fmt"
	"html"
	"path"
	"regexp"
	"strings"

	"castlepatch/catalog"
	"castlepatch/patch"
)

const (
	imagePlaceholder = `<!-- Image placeholder: will be replaced with actual castle image -->`
	mainImageClass   = "castle-main-image"
	hiddenMedia      = `class="detail-media detail-media-hidden"`
)

var reImagePlaceholderDiv = regexp.MustCompile(`(?s)<div class="image-placeholder"[^>]*>.*?</div>`)

func (s *Site) imageRule() patch.Rule {
	return patch.Rule{
		Name: "image",
		Only: PagePatterns,
		Locator: patch.FirstOf(
			patch.Marker{Text: imagePlaceholder, Place: patch.Replace},
			patch.Pattern{Regexp: reImagePlaceholderDiv},
			patch.Elem("div.detail-media", patch.AfterOpen),
		),
		Applied: patch.Contains(mainImageClass),
		Resolve: func(doc patch.Document) (any, bool) {
			e, ok := s.lookup(s.Catalog.Images, doc.Path)
			if !ok {
				return nil, false
			}
			alt, ok := detailTitle(doc.Content)
			if !ok {
				alt = CastleName(doc.Path)
			}
			return image{File: e.Payload.(string), Alt: alt}, true
		},
		Render: func(payload any, t patch.Target) (string, error) {
			img := payload.(image)
			tag := fmt.Sprintf(`<img src="%s" alt="%s" loading="lazy" class="castle-image %s">`,
				html.EscapeString(s.imageURL(img.File)), html.EscapeString(img.Alt), mainImageClass)
			if t.Start == t.End {
				return "\n          " + tag, nil
			}
			return tag, nil
		},
	}
}

type image struct {
	File string
	Alt  string
}

func (s *Site) imageURL(file string) string {
	if strings.HasSuffix(s.ImagePrefix, "/") || s.ImagePrefix == "" {
		return s.ImagePrefix + file
	}
	return path.Join(s.ImagePrefix, file)
}

// Media blocks stay hidden until an image has been placed in them.
func (s *Site) revealMediaRule() patch.Rule {
	return patch.Rule{
		Name:    "reveal-media",
		After:   []string{"image"},
		Only:    PagePatterns,
		Locator: patch.Marker{Text: hiddenMedia, Place: patch.Replace},
		Applied: func(content string, _ any) bool {
			return !strings.Contains(content, hiddenMedia)
		},
		Resolve: func(doc patch.Document) (any, bool) {
			return nil, strings.Contains(doc.Content, mainImageClass)
		},
		Render: patch.Static(`class="detail-media"`),
	}
}

var (
	reGradientCard = regexp.MustCompile(`<a class="card" href="([^"]+)">\s*(<div class="card-media gradient-[123]"></div>)`)
	reCastleCard   = regexp.MustCompile(`<a class="castle-card" href="([^"]+)"[^>]*>\s*(<div class="castle-media gradient-[0-9]"></div>)`)
	reCardTitle    = regexp.MustCompile(`<h3>([^<]+)</h3>`)
)

// cardLocator finds the first gradient placeholder card that resolves to an
// image, by its link first and then by its <h3> title. Groups holds the whole
// match, the href, the placeholder, the image file name and the alt text.
type cardLocator struct {
	site *Site
	re   *regexp.Regexp
}

func (l cardLocator) Locate(content string) (patch.Target, bool) {
	for _, loc := range l.re.FindAllStringSubmatchIndex(content, -1) {
		href := content[loc[2]:loc[3]]
		title, titled := cardTitle(content[loc[5]:])

		e, ok := catalog.Lookup(l.site.Catalog.Images, l.site.Cards, path.Base(href))
		if !ok && titled {
			e, ok = catalog.Lookup(l.site.Catalog.Images, l.site.Cards, title)
		}
		if !ok {
			continue
		}
		if !titled {
			title = CastleName(href)
		}
		return patch.Target{
			Start: loc[4],
			End:   loc[5],
			Text:  content[loc[4]:loc[5]],
			Groups: []string{
				content[loc[0]:loc[1]], href, content[loc[4]:loc[5]], e.Payload.(string), title,
			},
		}, true
	}
	return patch.Target{}, false
}

// cardTitle returns the <h3> of the card starting at rest.
func cardTitle(rest string) (string, bool) {
	if end := strings.Index(rest, "</a>"); end >= 0 {
		rest = rest[:end]
	}
	m := reCardTitle.FindStringSubmatch(rest)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(html.UnescapeString(m[1])), true
}

// cardRule fills gradient placeholder cards with the photo of the castle they
// link to. Cards without a matching photo keep their gradient, and pages
// without cards are left alone.
func (s *Site) cardRule(name string, only []string, re *regexp.Regexp, mediaClass string) patch.Rule {
	locator := cardLocator{site: s, re: re}
	return patch.Rule{
		Name:    name,
		Only:    only,
		Locator: locator,
		Repeat:  true,
		Applied: func(content string, _ any) bool {
			_, pending := locator.Locate(content)
			return !pending
		},
		Resolve: func(patch.Document) (any, bool) {
			return nil, len(s.Catalog.Images) > 0
		},
		Render: func(_ any, t patch.Target) (string, error) {
			file, alt := t.Groups[3], t.Groups[4]
			return fmt.Sprintf(`<div class="%s"><img src="%s" alt="%s" class="castle-image" loading="lazy"></div>`,
				mediaClass, html.EscapeString(s.imageURL(file)), html.EscapeString(alt)), nil
		},
	}
}

// Related-castle cards sit on castle pages and the overview pages.
func (s *Site) cardImagesRule() patch.Rule {
	only := append([]string{"index.html", "provinces.html"}, PagePatterns...)
	return s.cardRule("card-images", only, reGradientCard, "card-media")
}

func (s *Site) provinceCardImagesRule() patch.Rule {
	r := s.cardRule("province-card-images", s.ProvincePages(), reCastleCard, "castle-media")
	r.After = []string{"province-titles"}
	return r
}

// ProvincePages are the file names of the catalog's province pages.
func (s *Site) ProvincePages() []string {
	pages := make([]string, 0, len(s.Catalog.Provinces))
	for _, p := range s.Catalog.Provinces {
		pages = append(pages, p.ID+".html")
	}
	return pages
}
