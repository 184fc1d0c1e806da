package castle

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"castlepatch/catalog"
	"castlepatch/match"
	"castlepatch/patch"
)

const testCatalog = `
provinces:
  - id: namen
    name: Namen
    places: [dinant, freyr, walzin]
  - id: vlaams-brabant
    name: Vlaams-Brabant
    places: [lennik, gaasbeek]
default_province: vlaams-brabant
addresses:
  - page: kasteel-van-freyr-freyr.html
    address: Rue du Château de Freyr 12, 5540 Hastière
default_hours:
  days:
    - {day: Maandag, hours: Info volgt}
  note: Contacteer het kasteel voor actuele openingsuren
hours:
  - page: kasteel-van-freyr-freyr.html
    days:
      - {day: Zaterdag, hours: "10:00 - 17:00"}
      - {day: Zondag, hours: "10:00 - 17:00"}
    note: Enkel in het seizoen
faq_templates:
  default_renaissance:
    items:
      - question: Kan ik het kasteel bezoeken?
        answer: Ja, in het seizoen.
`

const castlePage = `<!DOCTYPE html>
<html lang="nl">
<head>
  <title>Van Freyr | kastelenbelgie.be</title>
</head>
<body>
  <main>
    <section class="detail-header">
      <div class="container">
        <h1 class="detail-title">Van Freyr</h1>
      </div>
    </section>
    <section class="section">
      <div class="container">
        <div class="detail-media detail-media-hidden">
          <!-- Image placeholder: will be replaced with actual castle image -->
        </div>
        <div class="intro">
          <p>Het kasteel ligt aan de Maas. Het werd gebouwd in de zestiende eeuw.</p>
          <p>De tuinen zijn beroemd.</p>
        </div>
        <p><strong>Adres:</strong> Info volgt</p>
        <ul class="hours-list">
        </ul>
        <p class="lead" style="margin-top:.8rem">Info volgt</p>
      </div>
    </section>
  </main>
  <footer></footer>
</body>
</html>
`

func testSite(t *testing.T) *Site {
	t.Helper()
	cat, err := catalog.Parse([]byte(testCatalog))
	if err != nil {
		t.Fatalf("catalog.Parse() error: %v", err)
	}
	cat.Images = []catalog.Entry{
		catalog.NewEntry("kasteel_van_freyr.jpg", "kasteel_van_freyr.jpg"),
		catalog.NewEntry("gaasbeek.jpg", "gaasbeek.jpg"),
	}
	m := match.New(match.DefaultThreshold, nil)
	return &Site{
		Name:        "kastelenbelgie.be",
		Catalog:     cat,
		Pages:       m,
		Cards:       m.WithThreshold(0.4),
		ImagePrefix: "./chateaux_images/",
	}
}

// applyAll runs rules in dependency order the way a patch pass does.
func applyAll(t *testing.T, rules []patch.Rule, path, content string) (string, map[string]patch.Status) {
	t.Helper()
	ordered, err := patch.Order(rules)
	if err != nil {
		t.Fatalf("Order() error: %v", err)
	}
	statuses := make(map[string]patch.Status)
	for _, r := range ordered {
		if !r.AppliesTo(path) {
			continue
		}
		var payload any
		if r.Resolve != nil {
			p, ok := r.Resolve(patch.Document{Path: path, Content: content})
			if !ok {
				continue
			}
			payload = p
		}
		res, err := patch.ApplyRule(content, r, payload)
		if err != nil {
			t.Fatalf("rule %s: %v", r.Name, err)
		}
		content = res.Content
		statuses[r.Name] = res.Status
	}
	return content, statuses
}

func TestCastlePage(t *testing.T) {
	site := testSite(t)
	out, statuses := applyAll(t, site.Rules(), "kasteel-van-freyr-freyr.html", castlePage)

	for _, want := range []string{
		`<h1 class="detail-title">Kasteel Van Freyr</h1>`,
		`<title>Kasteel Van Freyr | kastelenbelgie.be</title>`,
		`<a href="namen.html">Namen</a>`,
		`<span class="breadcrumb-current">Kasteel Van Freyr</span>`,
		`Het kasteel ligt aan de Maas, een prachtig voorbeeld van de <a href="index.html#provincies">kastelen in België</a>. Het werd gebouwd in de zestiende eeuw.`,
		`De tuinen zijn beroemd, onderdeel van het rijke erfgoed van <a href="namen.html">kastelen in Namen</a>.`,
		`<img src="./chateaux_images/kasteel_van_freyr.jpg" alt="Kasteel Van Freyr" loading="lazy" class="castle-image castle-main-image">`,
		`<div class="detail-media">`,
		`<p><strong>Adres:</strong> Rue du Château de Freyr 12, 5540 Hastière</p>`,
		`<li><span>Zaterdag</span><span>10:00 - 17:00</span></li>`,
		`<p class="lead" style="margin-top:.8rem">Enkel in het seizoen</p>`,
		`<h2 class="section-title">Veelgestelde vragen over Kasteel Van Freyr</h2>`,
		`onclick="toggleFaq(0)"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(out, imagePlaceholder) {
		t.Error("image placeholder should be replaced")
	}
	if !strings.Contains(out, "</main>\n    <section class=\"section faq\">") {
		t.Error("FAQ should follow </main>")
	}
	if statuses["card-images"] != patch.AlreadyApplied {
		t.Errorf("card-images on a page without cards = %v, want already-applied", statuses["card-images"])
	}

	again, statuses := applyAll(t, site.Rules(), "kasteel-van-freyr-freyr.html", out)
	if diff := cmp.Diff(out, again); diff != "" {
		t.Errorf("second pass changed the page (-first +second):\n%s", diff)
	}
	for name, st := range statuses {
		if st == patch.Applied {
			t.Errorf("rule %s applied on second pass", name)
		}
	}
}

func TestDefaultHoursKeepExistingRows(t *testing.T) {
	site := testSite(t)
	page := strings.Replace(castlePage, "<ul class=\"hours-list\">\n", "<ul class=\"hours-list\">\n<li><span>Dinsdag</span><span>9-5</span></li>\n", 1)

	out, statuses := applyAll(t, site.Rules(), "kasteel-van-gaasbeek-lennik.html", page)
	if !strings.Contains(out, "<li><span>Dinsdag</span><span>9-5</span></li>") {
		t.Error("existing hours should be kept")
	}
	if statuses["opening-hours"] != patch.AlreadyApplied {
		t.Errorf("opening-hours = %v, want already-applied", statuses["opening-hours"])
	}
	if !strings.Contains(out, `<a href="vlaams-brabant.html">Vlaams-Brabant</a>`) {
		t.Error("default province should be used for breadcrumb")
	}
}

func TestMissingPayloadSkipsRule(t *testing.T) {
	site := testSite(t)
	out, statuses := applyAll(t, site.Rules(), "kasteel-zonder-foto.html", castlePage)

	if _, ok := statuses["image"]; ok {
		t.Error("image rule should be skipped without a matching image")
	}
	if !strings.Contains(out, hiddenMedia) {
		t.Error("media should stay hidden without an image")
	}
	if !strings.Contains(out, "<p><strong>Adres:</strong> Info volgt</p>") {
		t.Error("address should stay a placeholder")
	}
}

func TestTitlePrefix(t *testing.T) {
	tests := []struct {
		title string
		want  bool
	}{
		{"Van Freyr", true},
		{"Kasteel van Gaasbeek", false},
		{"Château de Walzin", false},
		{"Citadel van Hoei", false},
		{"Het Steen", false},
		{"Gravensteen", true},
		{"  ", false},
	}
	for _, tt := range tests {
		if got := needsPrefix(tt.title); got != tt.want {
			t.Errorf("needsPrefix(%q) = %v, want %v", tt.title, got, tt.want)
		}
	}
}

func TestCardImages(t *testing.T) {
	site := testSite(t)
	page := `<div class="grid">
  <a class="card" href="kasteel-van-freyr-freyr.html">
    <div class="card-media gradient-1"></div>
  </a>
  <a class="card" href="kasteel-van-bouchout-meise.html">
    <div class="card-media gradient-2"></div>
  </a>
  <a class="card" href="kasteel-van-gaasbeek-lennik.html">
    <div class="card-media gradient-3"></div>
  </a>
</div>`

	rules, err := Select(site.Rules(), []string{"card-images"})
	if err != nil {
		t.Fatal(err)
	}
	out, statuses := applyAll(t, rules, "index.html", page)
	if statuses["card-images"] != patch.Applied {
		t.Fatalf("card-images = %v", statuses["card-images"])
	}
	if !strings.Contains(out, `<img src="./chateaux_images/kasteel_van_freyr.jpg" alt="Van Freyr Freyr" class="castle-image" loading="lazy">`) {
		t.Errorf("freyr card not filled:\n%s", out)
	}
	if !strings.Contains(out, `<img src="./chateaux_images/gaasbeek.jpg"`) {
		t.Errorf("gaasbeek card not filled:\n%s", out)
	}
	if !strings.Contains(out, `<div class="card-media gradient-2"></div>`) {
		t.Error("unmatched card should keep its gradient")
	}

	again, statuses := applyAll(t, rules, "index.html", out)
	if again != out || statuses["card-images"] != patch.AlreadyApplied {
		t.Errorf("second pass: status %v, changed %v", statuses["card-images"], again != out)
	}
}

func TestRelatedCardsOnCastlePage(t *testing.T) {
	site := testSite(t)
	related := `    <section class="section related">
      <div class="container">
        <a class="card" href="kasteel-van-gaasbeek-lennik.html">
          <div class="card-media gradient-2"></div>
          <h3>Kasteel van Gaasbeek</h3>
        </a>
        <a class="card" href="chateau-de-walzin-dinant.html">
          <div class="card-media gradient-3"></div>
          <h3>Château de Walzin</h3>
        </a>
      </div>
    </section>
  </main>`
	page := strings.Replace(castlePage, "  </main>", related, 1)

	out, statuses := applyAll(t, site.Rules(), "kasteel-van-freyr-freyr.html", page)
	if statuses["card-images"] != patch.Applied {
		t.Fatalf("card-images = %v, want applied", statuses["card-images"])
	}
	want := `<div class="card-media"><img src="./chateaux_images/gaasbeek.jpg" alt="Kasteel van Gaasbeek" class="castle-image" loading="lazy"></div>`
	if !strings.Contains(out, want) {
		t.Errorf("related card not filled:\n%s", out)
	}
	if !strings.Contains(out, `<div class="card-media gradient-3"></div>`) {
		t.Error("related card without a photo should keep its gradient")
	}

	again, statuses := applyAll(t, site.Rules(), "kasteel-van-freyr-freyr.html", out)
	if diff := cmp.Diff(out, again); diff != "" {
		t.Errorf("second pass changed the page (-first +second):\n%s", diff)
	}
	if statuses["card-images"] != patch.AlreadyApplied {
		t.Errorf("card-images on second pass = %v, want already-applied", statuses["card-images"])
	}
}

const provincePage = `<main>
  <h1>Kastelen in Namen</h1>
  <div class="castle-grid">
    <a class="castle-card" href="kasteel-van-freyr-freyr.html">
      <div class="castle-media gradient-2"></div>
      <div class="castle-body"><h3>kasteel van freyr freyr</h3></div>
    </a>
    <a class="castle-card" href="chateau-de-walzin-dinant.html">
      <div class="castle-media gradient-1"></div>
      <div class="castle-body"><h3>Château de Walzin te Dinant</h3></div>
    </a>
  </div>
</main>`

func TestProvincePage(t *testing.T) {
	site := testSite(t)
	out, statuses := applyAll(t, site.Rules(), "namen.html", provincePage)

	for _, want := range []string{
		`<h3>Kasteel van Freyr</h3>`,
		`<h3>Château de Walzin</h3>`,
		`<div class="castle-media"><img src="./chateaux_images/kasteel_van_freyr.jpg" alt="Kasteel van Freyr" class="castle-image" loading="lazy"></div>`,
		`<div class="castle-media gradient-1"></div>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if statuses["province-titles"] != patch.Applied || statuses["province-card-images"] != patch.Applied {
		t.Errorf("statuses = %v", statuses)
	}

	again, statuses := applyAll(t, site.Rules(), "namen.html", out)
	if diff := cmp.Diff(out, again); diff != "" {
		t.Errorf("second pass changed the page (-first +second):\n%s", diff)
	}
	for name, st := range statuses {
		if st != patch.AlreadyApplied {
			t.Errorf("rule %s on second pass = %v, want already-applied", name, st)
		}
	}
}

func TestUniformTitle(t *testing.T) {
	places := []string{"lennik", "gaasbeek", "hastière"}
	tests := []struct {
		title string
		want  string
	}{
		{"Kasteel van Gaasbeek", "Kasteel van Gaasbeek"},
		{"kasteel VAN gaasbeek lennik", "Kasteel van Gaasbeek"},
		{"Kasteel van Freyr Hastière", "Kasteel van Freyr"},
		{"Hof ter Linden in Edegem", "Hof Ter Linden"},
		{"Kasteel te Lennik", "Kasteel te Lennik"},
		{"  Gravensteen  ", "Gravensteen"},
	}
	for _, tt := range tests {
		got := uniformTitle(tt.title, places)
		if got != tt.want {
			t.Errorf("uniformTitle(%q) = %q, want %q", tt.title, got, tt.want)
		}
		if again := uniformTitle(got, places); again != got {
			t.Errorf("uniformTitle(%q) is not stable: %q", got, again)
		}
	}
}

func TestPageTitleReplacesStaleTitle(t *testing.T) {
	site := testSite(t)
	rules, err := Select(site.Rules(), []string{"page-title"})
	if err != nil {
		t.Fatal(err)
	}
	page := strings.Replace(castlePage, "<title>Van Freyr | kastelenbelgie.be</title>", "<title>Kasteel Van Freyr Hastière</title>", 1)

	out, statuses := applyAll(t, rules, "kasteel-van-freyr-freyr.html", page)
	if statuses["page-title"] != patch.Applied {
		t.Errorf("page-title = %v, want applied", statuses["page-title"])
	}
	if !strings.Contains(out, "<title>Kasteel Van Freyr | kastelenbelgie.be</title>") {
		t.Errorf("title not rewritten:\n%s", out)
	}
}

func TestIntroWithoutTwoParagraphs(t *testing.T) {
	site := testSite(t)
	rules, err := Select(site.Rules(), []string{"intro-links"})
	if err != nil {
		t.Fatal(err)
	}
	page := strings.Replace(castlePage, "          <p>De tuinen zijn beroemd.</p>\n", "", 1)

	out, statuses := applyAll(t, rules, "kasteel-van-freyr-freyr.html", page)
	if statuses["intro-links"] != patch.NoTarget {
		t.Errorf("intro-links = %v, want no-target", statuses["intro-links"])
	}
	if out != page {
		t.Error("intro should be left unchanged")
	}
}

func TestAssets(t *testing.T) {
	site := testSite(t)

	css, statuses := applyAll(t, site.Rules(), "style.css", "body { margin: 0; }\n")
	for _, marker := range []string{imageStylesMarker, faqStylesMarker, breadcrumbStylesMarker} {
		if strings.Count(css, marker) != 1 {
			t.Errorf("stylesheet should contain %q once", marker)
		}
	}
	if !strings.HasPrefix(css, "body { margin: 0; }\n") {
		t.Error("existing styles should be preserved")
	}
	if len(statuses) != 3 {
		t.Errorf("statuses = %v, want three style rules", statuses)
	}

	js, _ := applyAll(t, site.Rules(), "main.js", "console.log('x');\n")
	again, _ := applyAll(t, site.Rules(), "main.js", js)
	if strings.Count(again, "function toggleFaq") != 1 {
		t.Error("toggleFaq should be appended exactly once")
	}
}

func TestSelect(t *testing.T) {
	site := testSite(t)
	all := site.Rules()

	tests := []struct {
		name    string
		names   []string
		want    []string
		wantErr bool
	}{
		{name: "all", names: nil, want: Names(all)},
		{name: "with_dependency", names: []string{"page-title"}, want: []string{"title-prefix", "page-title"}},
		{name: "declaration_order", names: []string{"faq", "breadcrumb"}, want: []string{"breadcrumb", "faq"}},
		{name: "trimmed", names: []string{" hours-note "}, want: []string{"opening-hours", "hours-note"}},
		{name: "unknown", names: []string{"nope"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(all, tt.names)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Select() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if diff := cmp.Diff(tt.want, Names(got)); diff != "" {
				t.Errorf("Select() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCastleName(t *testing.T) {
	tests := map[string]string{
		"kasteel-van-freyr-freyr.html":  "Van Freyr Freyr",
		"chateau-de-walzin-dinant.html": "De Walzin Dinant",
		"het-steen-antwerpen.html":      "Steen Antwerpen",
		"/site/gravensteen-gent.html":   "Gravensteen Gent",
	}
	for in, want := range tests {
		if got := CastleName(in); got != want {
			t.Errorf("CastleName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRulesOrder(t *testing.T) {
	site := testSite(t)
	if _, err := patch.Order(site.Rules()); err != nil {
		t.Fatalf("site rules do not order: %v", err)
	}
}
