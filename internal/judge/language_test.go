package judge

import (
	"testing"

	pkgerrors "algohub/pkg/errors"
)

func TestResolveKnownLanguages(t *testing.T) {
	cases := []struct {
		label string
		want  int
	}{
		{"c++", 54},
		{"java", 62},
		{"javascript", 63},
		{"python", 71},
		{"Python", 71},
		{"JAVA", 62},
		{"  c++  ", 54},
	}
	for _, tc := range cases {
		got, err := Resolve(tc.label)
		if err != nil {
			t.Fatalf("Resolve(%q) returned error: %v", tc.label, err)
		}
		if got != tc.want {
			t.Fatalf("Resolve(%q) = %d, want %d", tc.label, got, tc.want)
		}
	}
}

func TestResolveCppAlias(t *testing.T) {
	alias, err := Resolve("cpp")
	if err != nil {
		t.Fatalf("Resolve(cpp) returned error: %v", err)
	}
	canonical, err := Resolve("c++")
	if err != nil {
		t.Fatalf("Resolve(c++) returned error: %v", err)
	}
	if alias != canonical {
		t.Fatalf("alias mismatch: cpp=%d c++=%d", alias, canonical)
	}
}

func TestResolveUnsupported(t *testing.T) {
	for _, label := range []string{"", "rust", "go", "c"} {
		_, err := Resolve(label)
		if err == nil {
			t.Fatalf("Resolve(%q) expected error", label)
		}
		if pkgerrors.GetCode(err) != pkgerrors.LanguageNotSupported {
			t.Fatalf("Resolve(%q) code = %d, want LanguageNotSupported", label, pkgerrors.GetCode(err))
		}
	}
}
