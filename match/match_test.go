package match

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"html_page", "kasteel-van-freyr-freyr.html", "kasteelvanfreyrfreyr"},
		{"image_with_underscores", "Kasteel_Van_Freyr.JPG", "kasteelvanfreyr"},
		{"spaces_and_hyphens", "Château de  Seneffe", "chateaudeseneffe"},
		{"diaeresis", "freÿr", "freyr"},
		{"unknown_extension_kept", "notes.txt", "notes.txt"},
		{"empty", "", ""},
		{"path_prefix_dropped", "/site/kasteel-hex.html", "kasteelhex"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeIsStable(t *testing.T) {
	in := "Kasteel-van-Gaasbeek_Lennik.jpeg"
	first := Normalize(in)
	for i := 0; i < 5; i++ {
		if got := Normalize(in); got != first {
			t.Fatalf("Normalize not stable: %q then %q", first, got)
		}
	}
}

func TestTokens(t *testing.T) {
	m := New(DefaultThreshold, nil)
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"stop_words_removed", "kasteel-van-freyr-freyr.html", []string{"freyr"}},
		{"mixed_separators", "chateau_de la Hulpe.jpg", []string{"hulpe"}},
		{"only_stop_words", "kasteel-van-de.html", nil},
		{"order_preserved", "hof-ter-linden-edegem", []string{"ter", "linden", "edegem"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Tokens(tt.input); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Tokens(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []string
		expected float64
	}{
		{"half", []string{"van", "freyr"}, []string{"freyr"}, 0.5},
		{"disjoint", []string{"abc"}, []string{"xyz"}, 0},
		{"identical", []string{"a", "b"}, []string{"b", "a"}, 1},
		{"empty_left", nil, []string{"a"}, 0},
		{"both_empty", nil, nil, 0},
		{"duplicates_ignored", []string{"a", "a", "b"}, []string{"a"}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Jaccard(tt.a, tt.b); got != tt.expected {
				t.Errorf("Jaccard(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestBestExactMatch(t *testing.T) {
	m := New(DefaultThreshold, nil)
	names := []string{"freyr-rotsen.jpg", "kasteel_van_freyr_freyr.png", "freyr.jpg"}

	idx, score, ok := m.Best("kasteel-van-freyr-freyr.html", names)
	if !ok || idx != 1 || score != 1 {
		t.Errorf("Best() = (%d, %v, %v), want (1, 1, true)", idx, score, ok)
	}
}

func TestBestExactMatchPrecedence(t *testing.T) {
	// "freyr.jpg" scores 1.0 on tokens and comes first, but the exact key wins.
	m := New(DefaultThreshold, nil)
	names := []string{"freyr.jpg", "kasteelvanfreyrfreyr.jpg"}

	idx, _, ok := m.Best("kasteel-van-freyr-freyr", names)
	if !ok || idx != 1 {
		t.Errorf("Best() = (%d, %v), want exact candidate 1", idx, ok)
	}
}

func TestBestTokenOverlap(t *testing.T) {
	// Only "kasteel" is a stop word here so the key keeps {van, freyr}.
	m := New(DefaultThreshold, []string{"kasteel"})

	idx, score, ok := m.Best("kasteel-van-freyr", []string{"abdij-orval.jpg", "freyr.jpg"})
	if !ok || idx != 1 {
		t.Fatalf("Best() = (%d, %v, %v), want candidate 1", idx, score, ok)
	}
	if score != 0.5 {
		t.Errorf("score = %v, want 0.5", score)
	}
}

func TestBestNoMatch(t *testing.T) {
	m := New(DefaultThreshold, nil)
	tests := []struct {
		name  string
		key   string
		names []string
	}{
		{"disjoint_tokens", "abc", []string{"xyz.jpg"}},
		{"key_only_stop_words", "kasteel-van-de.html", []string{"kasteel.jpg", "de.jpg"}},
		{"empty_catalog", "kasteel-van-freyr", nil},
		{"below_threshold", "kasteel-alden-biesen-bilzen", []string{"bilzen-centrum-markt-zicht.jpg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if idx, score, ok := m.Best(tt.key, tt.names); ok {
				t.Errorf("Best() = (%d, %v, true), want no match", idx, score)
			}
		})
	}
}

func TestBestTieKeepsFirst(t *testing.T) {
	m := New(DefaultThreshold, nil)
	idx, _, ok := m.Best("kasteel-van-gaasbeek-lennik", []string{"gaasbeek-a.jpg", "gaasbeek-b.jpg"})
	if !ok || idx != 0 {
		t.Errorf("Best() = (%d, %v), want first candidate", idx, ok)
	}
}

func TestThresholdMonotonicity(t *testing.T) {
	base := New(0, nil)
	names := []string{"freyr.jpg", "gaasbeek-lennik.jpg", "beersel-burcht.jpg", "hex-heers.jpg"}
	keys := []string{
		"kasteel-van-freyr-hastiere", "kasteel-van-gaasbeek", "burcht-van-beersel",
		"kasteel-hex-heers", "kasteel-van-horst-holsbeek",
	}
	thresholds := []float64{0, 0.2, 0.3, 0.4, 0.5, 0.7, 0.99}

	for _, key := range keys {
		prevAccepted := true
		for _, th := range thresholds {
			_, _, ok := base.WithThreshold(th).Best(key, names)
			if ok && !prevAccepted {
				t.Errorf("key %q accepted at threshold %v after being rejected at a lower one", key, th)
			}
			prevAccepted = ok
		}
	}
}
