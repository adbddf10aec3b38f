package buildinfo

import "testing"

func TestTagPrecedence(t *testing.T) {
	defer func(rel, rev string) {
		Release, Revision = rel, rev
	}(Release, Revision)

	cases := []struct {
		release  string
		revision string
		want     string
	}{
		{"dev", "unknown", "dev"},
		{"dev", "abc1234", "abc1234"},
		{"v1.2.0", "abc1234", "v1.2.0"},
		{"", "", "dev"},
	}
	for _, tc := range cases {
		Release, Revision = tc.release, tc.revision
		if got := Tag(); got != tc.want {
			t.Errorf("Tag() with release=%q revision=%q = %q, want %q",
				tc.release, tc.revision, got, tc.want)
		}
	}
}
