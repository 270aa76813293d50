// Package normalize turns arbitrarily-shaped provider success payloads into
// a canonical list of image URLs. The two providers (and different models of
// the same provider) return structurally different payloads: a bare string,
// an array of strings, an array of objects with a url field, or a top-level
// object. One tolerant walker covers all of them instead of per-model
// special cases.
package normalize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Result is the ordered, deduplicated sequence of absolute image URLs
// extracted from a payload. Diagnostic is populated only when no URL was
// found, describing the payload shape for caller-level error messages.
type Result struct {
	URLs       []string
	Diagnostic string
}

// urlKeys are conventional URL-bearing object keys, scanned in this priority
// order before the remaining object values are walked.
var urlKeys = []string{"url", "uri", "href", "image", "output", "result", "file"}

// Normalize never fails: an unrecognizable payload yields an empty URL list
// with a human-readable shape description.
func Normalize(raw any) Result {
	urls := lo.Uniq(collect(raw))
	res := Result{URLs: urls}
	if len(urls) == 0 {
		res.Diagnostic = describe(raw)
	}
	return res
}

func collect(node any) []string {
	switch v := node.(type) {
	case string:
		if url, ok := candidateURL(v); ok {
			return []string{url}
		}
	case []any:
		var urls []string
		for _, item := range v {
			urls = append(urls, collect(item)...)
		}
		return urls
	case map[string]any:
		return collectObject(v)
	}
	return nil
}

// collectObject merges key-based matches with a recursive walk of every
// value, so both {"url": "..."} and nested shapes like {"data": [{"url":
// "..."}]} are caught. Walk order is fixed (known keys first, the rest
// sorted) to keep results deterministic across map iterations.
func collectObject(obj map[string]any) []string {
	var urls []string
	seen := make(map[string]bool, len(obj))
	for _, key := range urlKeys {
		val, ok := obj[key]
		if !ok {
			continue
		}
		seen[key] = true
		urls = append(urls, collect(val)...)
	}
	if b64, ok := obj["b64_json"].(string); ok && strings.TrimSpace(b64) != "" {
		seen["b64_json"] = true
		urls = append(urls, "data:image/png;base64,"+strings.TrimSpace(b64))
	}
	rest := make([]string, 0, len(obj))
	for key := range obj {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		urls = append(urls, collect(obj[key])...)
	}
	return urls
}

// candidateURL accepts absolute HTTP(S) URLs, embedded-data URIs, and known
// provider short paths that just need a protocol prefix.
func candidateURL(s string) (string, bool) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return "", false
	case strings.HasPrefix(s, "http://"), strings.HasPrefix(s, "https://"):
		return s, true
	case strings.HasPrefix(s, "data:"):
		return s, true
	case strings.HasPrefix(s, "//"):
		return "https:" + s, true
	case strings.HasPrefix(s, "replicate.delivery/"):
		return "https://" + s, true
	}
	return "", false
}

func describe(node any) string {
	switch v := node.(type) {
	case nil:
		return "null payload"
	case string:
		return fmt.Sprintf("string of %d chars with no recognizable url", len(v))
	case []any:
		return fmt.Sprintf("array of %d elements with no recognizable url", len(v))
	case map[string]any:
		keys := lo.Keys(v)
		sort.Strings(keys)
		return fmt.Sprintf("object with keys [%s] and no recognizable url", strings.Join(keys, ", "))
	default:
		return fmt.Sprintf("%T value with no recognizable url", node)
	}
}
