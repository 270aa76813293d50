package normalize

import (
	"encoding/json"
	"strings"
	"testing"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return v
}

func TestNormalizeKnownShapes(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    []string
	}{
		{
			name:    "bare url string",
			payload: `"https://replicate.delivery/pbxt/abc/out-0.png"`,
			want:    []string{"https://replicate.delivery/pbxt/abc/out-0.png"},
		},
		{
			name:    "array of url strings",
			payload: `["https://cdn.example.com/1.png", "https://cdn.example.com/2.png"]`,
			want:    []string{"https://cdn.example.com/1.png", "https://cdn.example.com/2.png"},
		},
		{
			name:    "array of url objects",
			payload: `[{"url": "https://cdn.example.com/a.png"}, {"url": "https://cdn.example.com/b.png"}]`,
			want:    []string{"https://cdn.example.com/a.png", "https://cdn.example.com/b.png"},
		},
		{
			name:    "nested data array with b64_json",
			payload: `{"data": [{"b64_json": "aGVsbG8="}]}`,
			want:    []string{"data:image/png;base64,aGVsbG8="},
		},
		{
			name:    "grok top-level url field",
			payload: `{"url": "https://api.x.ai/files/out.png", "model": "grok-imagine-image"}`,
			want:    []string{"https://api.x.ai/files/out.png"},
		},
		{
			name:    "grok data string",
			payload: `{"data": "https://api.x.ai/files/out.png"}`,
			want:    []string{"https://api.x.ai/files/out.png"},
		},
		{
			name:    "short path gains protocol",
			payload: `"replicate.delivery/pbxt/xyz/out.webp"`,
			want:    []string{"https://replicate.delivery/pbxt/xyz/out.webp"},
		},
		{
			name:    "duplicates collapse preserving first-seen order",
			payload: `{"output": ["https://cdn.example.com/a.png", "https://cdn.example.com/b.png"], "url": "https://cdn.example.com/a.png"}`,
			want:    []string{"https://cdn.example.com/a.png", "https://cdn.example.com/b.png"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Normalize(decode(t, tc.payload))
			if len(res.URLs) != len(tc.want) {
				t.Fatalf("got %d urls %v, want %d", len(res.URLs), res.URLs, len(tc.want))
			}
			for i, u := range res.URLs {
				if u != tc.want[i] {
					t.Fatalf("url[%d] = %q, want %q", i, u, tc.want[i])
				}
			}
			if res.Diagnostic != "" {
				t.Fatalf("unexpected diagnostic %q", res.Diagnostic)
			}
		})
	}
}

func TestNormalizeKeyPriorityOverSortedWalk(t *testing.T) {
	payload := decode(t, `{"aaa": "https://cdn.example.com/second.png", "url": "https://cdn.example.com/first.png"}`)
	res := Normalize(payload)
	if len(res.URLs) != 2 {
		t.Fatalf("got %v", res.URLs)
	}
	if res.URLs[0] != "https://cdn.example.com/first.png" {
		t.Fatalf("known key should win ordering, got %v", res.URLs)
	}
}

func TestNormalizeNoURLs(t *testing.T) {
	cases := []struct {
		name     string
		payload  any
		wantHint string
	}{
		{"nil payload", nil, "null"},
		{"plain text", "not a url at all", "string"},
		{"numeric array", decode(t, `[1, 2, 3]`), "array of 3"},
		{"opaque object", decode(t, `{"status": "done", "count": 2}`), "count, status"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Normalize(tc.payload)
			if len(res.URLs) != 0 {
				t.Fatalf("expected no urls, got %v", res.URLs)
			}
			if res.Diagnostic == "" {
				t.Fatalf("expected a diagnostic")
			}
			if !strings.Contains(res.Diagnostic, tc.wantHint) {
				t.Fatalf("diagnostic %q missing %q", res.Diagnostic, tc.wantHint)
			}
		})
	}
}
