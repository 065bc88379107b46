package i18n

import (
	"strings"

	"golang.org/x/text/language"
)

// Locales fixes the locale policy for the catalogue: which locales are
// supported, which one is canonical, and which one is consulted as the second
// source of truth when comparing localized values.
type Locales struct {
	Default   string
	Secondary string
	Supported []string

	matcher language.Matcher
}

// NewLocales builds the locale policy. The default locale is always treated as
// supported even when absent from the supported list.
func NewLocales(defaultLocale, secondaryLocale string, supported []string) Locales {
	defaultLocale = normalizeLocale(defaultLocale)
	if defaultLocale == "" {
		defaultLocale = "en"
	}
	secondaryLocale = normalizeLocale(secondaryLocale)

	seen := map[string]bool{defaultLocale: true}
	cleaned := []string{defaultLocale}
	for _, locale := range supported {
		locale = normalizeLocale(locale)
		if locale == "" || seen[locale] {
			continue
		}
		seen[locale] = true
		cleaned = append(cleaned, locale)
	}
	if secondaryLocale != "" && !seen[secondaryLocale] {
		cleaned = append(cleaned, secondaryLocale)
	}

	tags := make([]language.Tag, 0, len(cleaned))
	for _, locale := range cleaned {
		tag, err := language.Parse(locale)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		tags = []language.Tag{language.English}
	}

	return Locales{
		Default:   defaultLocale,
		Secondary: secondaryLocale,
		Supported: cleaned,
		matcher:   language.NewMatcher(tags),
	}
}

// Resolve negotiates the best supported locale for an Accept-Language header
// or an explicit locale hint. Unknown input falls back to the default locale.
func (l Locales) Resolve(acceptLanguage string) string {
	acceptLanguage = strings.TrimSpace(acceptLanguage)
	if acceptLanguage == "" || l.matcher == nil {
		return l.Default
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return l.Default
	}
	_, index, confidence := l.matcher.Match(tags...)
	if confidence == language.No {
		return l.Default
	}
	if index < 0 || index >= len(l.Supported) {
		return l.Default
	}
	return l.Supported[index]
}

// String resolves a localized value for the requested locale, falling back to
// the default locale and then to any non-empty translation.
func (l Locales) String(values map[string]string, locale string) string {
	if len(values) == 0 {
		return ""
	}
	locale = normalizeLocale(locale)
	if locale != "" {
		if value := strings.TrimSpace(values[locale]); value != "" {
			return value
		}
	}
	if value := strings.TrimSpace(values[l.Default]); value != "" {
		return value
	}
	for _, supported := range l.Supported {
		if value := strings.TrimSpace(values[supported]); value != "" {
			return value
		}
	}
	return ""
}

// Equal compares two localized maps on the default and secondary locales only.
// Other locales are deliberately not diffed; edits touching them alone are
// treated as no-ops by the diff engine.
func (l Locales) Equal(a, b map[string]string) bool {
	if strings.TrimSpace(a[l.Default]) != strings.TrimSpace(b[l.Default]) {
		return false
	}
	if l.Secondary == "" {
		return true
	}
	return strings.TrimSpace(a[l.Secondary]) == strings.TrimSpace(b[l.Secondary])
}

func normalizeLocale(locale string) string {
	return strings.ToLower(strings.TrimSpace(locale))
}

// NormalizeStringMap trims keys and values, removing entries with empty keys
// or empty values. A map with nothing left normalizes to nil.
func NormalizeStringMap(values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	result := make(map[string]string, len(values))
	for key, value := range values {
		trimmedKey := normalizeLocale(key)
		if trimmedKey == "" {
			continue
		}
		trimmedValue := strings.TrimSpace(value)
		if trimmedValue == "" {
			continue
		}
		result[trimmedKey] = trimmedValue
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
