package castle

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"castlepatch/catalog"
	"castlepatch/patch"
)

var (
	reAddress   = regexp.MustCompile(`<p><strong>Adres:</strong>\s*([^<]+)</p>`)
	reHoursNote = regexp.MustCompile(`<p class="lead" style="margin-top:\.8rem">([^<]+)</p>`)
	hoursList   = patch.Elem("ul.hours-list", patch.ReplaceInner)
)

// Only placeholder addresses are replaced.
func (s *Site) addressRule() patch.Rule {
	return patch.Rule{
		Name:    "address",
		Only:    PagePatterns,
		Locator: patch.Pattern{Regexp: reAddress, Group: 1},
		Applied: func(content string, _ any) bool {
			m := reAddress.FindStringSubmatch(content)
			return m != nil && !strings.Contains(strings.ToLower(m[1]), "info volgt")
		},
		Resolve: func(doc patch.Document) (any, bool) {
			e, ok := s.lookup(s.Catalog.Addresses, doc.Path)
			if !ok {
				return nil, false
			}
			return e.Payload.(string), true
		},
		Render: func(payload any, _ patch.Target) (string, error) {
			return html.EscapeString(payload.(string)), nil
		},
	}
}

type hoursPayload struct {
	Hours catalog.Hours
	// Default marks the site-wide fallback, which never overwrites a list
	// that already has rows.
	Default bool
}

func (s *Site) resolveHours(doc patch.Document) (any, bool) {
	if e, ok := s.lookup(s.Catalog.Hours, doc.Path); ok {
		return hoursPayload{Hours: e.Payload.(catalog.Hours)}, true
	}
	if s.Catalog.DefaultHours != nil {
		return hoursPayload{Hours: *s.Catalog.DefaultHours, Default: true}, true
	}
	return nil, false
}

func keepExistingHours(content string, payload any) bool {
	if !payload.(hoursPayload).Default {
		return false
	}
	t, ok := hoursList.Locate(content)
	return ok && strings.Contains(t.Text, "<li")
}

func (s *Site) openingHoursRule() patch.Rule {
	return patch.Rule{
		Name:    "opening-hours",
		Only:    PagePatterns,
		Locator: hoursList,
		Applied: keepExistingHours,
		Resolve: s.resolveHours,
		Render: func(payload any, _ patch.Target) (string, error) {
			days := payload.(hoursPayload).Hours.Days
			if len(days) == 0 {
				return "", fmt.Errorf("opening hours have no days")
			}
			var b strings.Builder
			for _, d := range days {
				fmt.Fprintf(&b, "\n              <li><span>%s</span><span>%s</span></li>",
					html.EscapeString(d.Day), html.EscapeString(d.Hours))
			}
			b.WriteString("\n            ")
			return b.String(), nil
		},
	}
}

func (s *Site) hoursNoteRule() patch.Rule {
	return patch.Rule{
		Name:    "hours-note",
		After:   []string{"opening-hours"},
		Only:    PagePatterns,
		Locator: patch.Pattern{Regexp: reHoursNote, Group: 1},
		Applied: func(content string, payload any) bool {
			return payload.(hoursPayload).Hours.Note == "" || keepExistingHours(content, payload)
		},
		Resolve: s.resolveHours,
		Render: func(payload any, _ patch.Target) (string, error) {
			return html.EscapeString(payload.(hoursPayload).Hours.Note), nil
		},
	}
}

func (s *Site) faqRule() patch.Rule {
	return patch.Rule{
		Name:    "faq",
		Only:    PagePatterns,
		Locator: patch.Marker{Text: "</main>", Place: patch.After},
		Applied: patch.Contains(`class="section faq"`),
		Resolve: func(doc patch.Document) (any, bool) {
			lookup := func(entries []catalog.Entry) (catalog.Entry, bool) {
				return s.lookup(entries, doc.Path)
			}
			name, ok := detailTitle(doc.Content)
			if !ok {
				name = CastleName(doc.Path)
			}
			return s.Catalog.FAQFor(lookup, doc.Path, name)
		},
		Render: func(payload any, _ patch.Target) (string, error) {
			return "\n" + faqHTML(payload.(catalog.FAQSet)), nil
		},
	}
}

func faqHTML(set catalog.FAQSet) string {
	var b strings.Builder
	fmt.Fprintf(&b, `    <section class="section faq">
      <div class="container">
        <h2 class="section-title">%s</h2>
        <div class="faq-list">`, html.EscapeString(set.Title))

	for i, item := range set.Items {
		answer := item.AnswerHTML
		if answer == "" {
			answer = "<p>" + html.EscapeString(item.Answer) + "</p>"
		}
		fmt.Fprintf(&b, `
          <div class="faq-item">
            <button class="faq-question" onclick="toggleFaq(%d)" aria-expanded="false">
              <span>%s</span>
              <span class="faq-icon">+</span>
            </button>
            <div class="faq-answer" id="faq-%d">
              %s
            </div>
          </div>`, i, html.EscapeString(item.Question), i, answer)
	}

	b.WriteString(`
        </div>
      </div>
    </section>`)
	return b.String()
}
