package pattern

import "testing"

func TestMatches(t *testing.T) {
	cases := []struct {
		path     string
		patterns []string
		isDir    bool
		want     bool
	}{
		{path: "/a.log", patterns: []string{"*.log"}, want: true},
		{path: "/a.LOG", patterns: []string{"*.log"}, want: true},
		{path: "/a.txt", patterns: []string{"*.log"}, want: false},
		{
			path:     "/a.log",
			patterns: []string{"*.log", "!keep.log"},
			want:     true,
		},
		{
			path:     "/keep.log",
			patterns: []string{"*.log", "!keep.log"},
			want:     false,
		},
		{path: "/node_modules/", patterns: []string{"node_modules/"}, isDir: true, want: true},
		{path: "/node_modules", patterns: []string{"node_modules/"}, isDir: false, want: false},
		{path: "/sub/a.txt", patterns: []string{"/sub/*.txt"}, want: true},
		{path: "/other/a.txt", patterns: []string{"/sub/*.txt"}, want: false},
		{path: "/sub/deep/a.txt", patterns: []string{"/sub/*.txt"}, want: false},
		{path: "/sub/a.txt", patterns: []string{"sub/a.txt"}, want: true},
		// Negation invariant: appending "!x" then "x" equals just "x" when x matches.
		{path: "/x.txt", patterns: []string{"x.txt", "!x.txt", "x.txt"}, want: true},
	}

	for _, tc := range cases {
		got := Matches(tc.path, tc.patterns, tc.isDir)
		if got != tc.want {
			t.Errorf("Matches(%q, %v, %v) = %v, want %v", tc.path, tc.patterns, tc.isDir, got, tc.want)
		}
	}
}

func TestMatchesNegationInvariant(t *testing.T) {
	base := []string{"x.txt"}
	extended := []string{"x.txt", "!x.txt", "x.txt"}

	got1 := Matches("/x.txt", base, false)
	got2 := Matches("/x.txt", extended, false)
	if got1 != got2 {
		t.Errorf("negation invariant violated: base=%v extended=%v", got1, got2)
	}
}
