package i18n

import "testing"

func newTestLocales() Locales {
	return NewLocales("en", "fr", []string{"en", "fr", "de"})
}

func TestResolvePrefersSupportedLocale(t *testing.T) {
	locales := newTestLocales()

	cases := []struct {
		name   string
		header string
		want   string
	}{
		{name: "exact match", header: "fr", want: "fr"},
		{name: "quality ordering", header: "de;q=0.9, fr;q=1.0", want: "fr"},
		{name: "region narrows to base", header: "de-AT", want: "de"},
		{name: "unsupported falls back", header: "ja", want: "en"},
		{name: "empty falls back", header: "", want: "en"},
		{name: "garbage falls back", header: ";;;", want: "en"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := locales.Resolve(tc.header); got != tc.want {
				t.Fatalf("Resolve(%q) = %q, want %q", tc.header, got, tc.want)
			}
		})
	}
}

func TestStringFallsBackToDefaultLocale(t *testing.T) {
	locales := newTestLocales()
	values := map[string]string{"en": "Red wine", "fr": "Vin rouge"}

	if got := locales.String(values, "fr"); got != "Vin rouge" {
		t.Fatalf("expected french value, got %q", got)
	}
	if got := locales.String(values, "de"); got != "Red wine" {
		t.Fatalf("expected default-locale fallback, got %q", got)
	}
	if got := locales.String(map[string]string{"de": "Rotwein"}, "fr"); got != "Rotwein" {
		t.Fatalf("expected any non-empty translation, got %q", got)
	}
	if got := locales.String(nil, "en"); got != "" {
		t.Fatalf("expected empty result for nil map, got %q", got)
	}
}

func TestEqualComparesDefaultAndSecondaryOnly(t *testing.T) {
	locales := newTestLocales()

	a := map[string]string{"en": "Dry", "fr": "Sec", "de": "Trocken"}
	b := map[string]string{"en": "Dry", "fr": "Sec", "de": "Halbtrocken"}
	if !locales.Equal(a, b) {
		t.Fatal("expected maps differing only in a tertiary locale to be equal")
	}

	c := map[string]string{"en": "Dry", "fr": "Demi-sec"}
	if locales.Equal(a, c) {
		t.Fatal("expected secondary-locale difference to be detected")
	}

	d := map[string]string{"en": " Dry ", "fr": "Sec"}
	if !locales.Equal(a, d) {
		t.Fatal("expected whitespace-insensitive comparison")
	}
}

func TestMessagesLookup(t *testing.T) {
	locales := newTestLocales()
	messages := NewMessages(locales, map[string]map[string]string{
		MsgProductNotFound: {"de": "Produkt nicht gefunden"},
	})

	if got := messages.Lookup(MsgProductNotFound, "de"); got != "Produkt nicht gefunden" {
		t.Fatalf("expected merged translation, got %q", got)
	}
	if got := messages.Lookup(MsgProductNotFound, "fr"); got != "Produit introuvable" {
		t.Fatalf("expected built-in french translation, got %q", got)
	}
	if got := messages.Lookup("no.such.code", "en"); got != "Something went wrong, please try again later" {
		t.Fatalf("expected generic message for unknown code, got %q", got)
	}
}

func TestNormalizeStringMapDropsEmptyEntries(t *testing.T) {
	got := NormalizeStringMap(map[string]string{
		" EN ": " Merlot ",
		"":     "ignored",
		"fr":   "   ",
	})
	if len(got) != 1 || got["en"] != "Merlot" {
		t.Fatalf("unexpected normalization result: %#v", got)
	}
	if NormalizeStringMap(nil) != nil {
		t.Fatal("expected nil for empty input")
	}
}
