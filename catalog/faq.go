package catalog

import (
	"fmt"
	"strings"

	"github.com/niklasfasching/go-org/org"
)

// FAQ answers are authored in org markup so that links and emphasis survive
// the trip into the page.
func renderFAQSet(set FAQSet) (FAQSet, error) {
	out := FAQSet{Title: set.Title, Items: make([]FAQItem, 0, len(set.Items))}
	for i, item := range set.Items {
		html, err := renderOrg(item.Answer)
		if err != nil {
			return FAQSet{}, fmt.Errorf("item %d: %w", i, err)
		}
		item.AnswerHTML = html
		out.Items = append(out.Items, item)
	}
	return out, nil
}

func renderOrg(src string) (string, error) {
	if strings.TrimSpace(src) == "" {
		return "", nil
	}
	doc := org.New().Parse(strings.NewReader(src), "")
	if doc.Error != nil {
		return "", doc.Error
	}
	html, err := doc.Write(org.NewHTMLWriter())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(html), nil
}

// FAQFor returns the FAQ set for the page key, or the template for the
// castle type implied by the file name with a title naming castleName.
func (c *Catalog) FAQFor(lookup func([]Entry) (Entry, bool), filename, castleName string) (FAQSet, bool) {
	if e, ok := lookup(c.FAQs); ok {
		return e.Payload.(FAQSet), true
	}
	tmpl, ok := c.FAQTemplates[CastleType(filename)]
	if !ok || len(tmpl.Items) == 0 {
		return FAQSet{}, false
	}
	title := tmpl.Title
	if title == "" {
		title = "Veelgestelde vragen over " + castleName
	} else {
		title = strings.ReplaceAll(title, "{name}", castleName)
	}
	return FAQSet{Title: title, Items: tmpl.Items}, true
}

// CastleType classifies a page for FAQ template selection.
func CastleType(filename string) string {
	lower := strings.ToLower(filename)
	switch {
	case strings.Contains(lower, "chateau"):
		return "default_chateau"
	case strings.Contains(lower, "citadel"), strings.Contains(lower, "burcht"):
		return "default_medieval"
	default:
		return "default_renaissance"
	}
}
