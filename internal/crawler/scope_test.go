package crawler

import "testing"

func TestScopeFilterInScope(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		origin    string
		candidate string
		want      bool
	}{
		{name: "origin itself", origin: "https://x.test/", candidate: "https://x.test/", want: true},
		{name: "page under origin", origin: "https://x.test/", candidate: "https://x.test/about", want: true},
		{name: "different host", origin: "https://x.test/", candidate: "https://other.test/", want: false},
		{name: "different scheme", origin: "https://x.test/", candidate: "http://x.test/about", want: false},
		{name: "subtree origin admits children", origin: "https://x.test/docs/", candidate: "https://x.test/docs/install", want: true},
		{name: "subtree origin rejects siblings", origin: "https://x.test/docs/", candidate: "https://x.test/blog/", want: false},
		{name: "prefix quirk admits sibling domain", origin: "https://x.test", candidate: "https://x.test.evil.org/", want: true},
		{name: "excluded extension", origin: "https://x.test/", candidate: "https://x.test/doc.pdf", want: false},
		{name: "excluded extension with query", origin: "https://x.test/", candidate: "https://x.test/logo.png?v=2", want: false},
		{name: "extension check is case-sensitive", origin: "https://x.test/", candidate: "https://x.test/DOC.PDF", want: true},
		{name: "extension in directory name is fine", origin: "https://x.test/", candidate: "https://x.test/file.zip/readme", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := InScope(tt.candidate, tt.origin, DefaultExcludedExtensions); got != tt.want {
				t.Errorf("InScope(%q, %q) = %v, want %v", tt.candidate, tt.origin, got, tt.want)
			}
		})
	}
}

func TestNewScopeFilterNormalizesExtensions(t *testing.T) {
	t.Parallel()

	f := NewScopeFilter("https://x.test/", []string{"pdf", " .zip ", ""})
	if !f.IsExcluded("https://x.test/a.pdf") {
		t.Error("expected .pdf to be excluded when configured without a dot")
	}
	if !f.IsExcluded("https://x.test/a.zip") {
		t.Error("expected .zip to be excluded after trimming")
	}
	if f.IsExcluded("https://x.test/a") {
		t.Error("empty entry must not exclude everything")
	}
	if f.Origin() != "https://x.test/" {
		t.Errorf("Origin() = %q", f.Origin())
	}
}

func TestScopeFilterNilExcluded(t *testing.T) {
	t.Parallel()

	f := NewScopeFilter("https://x.test/", nil)
	if !f.InScope("https://x.test/doc.pdf") {
		t.Error("expected nothing excluded with nil list")
	}
}
