package middleware

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

type localeContextKey struct{}

// LocaleKey carries the negotiated locale through the request context.
var LocaleKey = localeContextKey{}

// supportedLocales are the languages sticker failure messages ship in.
var supportedLocales = []language.Tag{
	language.English,
	language.Indonesian,
}

var localeMatcher = language.NewMatcher(supportedLocales)

// Locale negotiates the response language from X-Locale or Accept-Language
// and stores the result in the context for the error translator.
func Locale(defaultLocale string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			locale := detectLocale(r, defaultLocale)
			ctx := context.WithValue(r.Context(), LocaleKey, locale)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func detectLocale(r *http.Request, fallback string) string {
	if v := strings.TrimSpace(r.Header.Get("X-Locale")); v != "" {
		return matchLocale(v)
	}
	if v := r.Header.Get("Accept-Language"); v != "" {
		if tags, _, err := language.ParseAcceptLanguage(v); err == nil && len(tags) > 0 {
			_, idx, _ := localeMatcher.Match(tags...)
			return localeCode(supportedLocales[idx])
		}
	}
	if fallback != "" {
		return matchLocale(fallback)
	}
	return "en"
}

func matchLocale(raw string) string {
	tag, err := language.Parse(raw)
	if err != nil {
		return "en"
	}
	_, idx, _ := localeMatcher.Match(tag)
	return localeCode(supportedLocales[idx])
}

func localeCode(tag language.Tag) string {
	base, _ := tag.Base()
	return base.String()
}

// LocaleFromContext returns the negotiated locale, defaulting to English.
func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(LocaleKey).(string); ok {
		return v
	}
	return "en"
}
