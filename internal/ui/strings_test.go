package ui

import "testing"

func TestTruncate(t *testing.T) {
	cases := []struct {
		in    string
		limit int
		want  string
	}{
		{"short", 10, "short"},
		{"  padded  ", 10, "padded"},
		{"exactly10!", 10, "exactly10!"},
		{"a longer value", 8, "a lon..."},
		{"abcdef", 3, "abc"},
		{"unlimited", 0, "unlimited"},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.limit); got != tc.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tc.in, tc.limit, got, tc.want)
		}
	}
}

func TestTruncateMiddle(t *testing.T) {
	if got := truncateMiddle("https://example.com", 40); got != "https://example.com" {
		t.Fatalf("truncateMiddle short = %q", got)
	}
	got := truncateMiddle("/home/ada/.local/state/foreman/foreman.log", 15)
	if len([]rune(got)) != 15 {
		t.Fatalf("truncateMiddle = %q (%d runes), want 15", got, len([]rune(got)))
	}
	if got[:7] != "/home/a" {
		t.Fatalf("truncateMiddle kept %q, want the start preserved", got)
	}
	if got[len(got)-7:] != "man.log" {
		t.Fatalf("truncateMiddle kept %q, want the end preserved", got)
	}
}

func TestTitleCase(t *testing.T) {
	cases := map[string]string{
		"projects.view": "Projects View",
		"users_invite":  "Users Invite",
		"ROLES":         "Roles",
		"":              "",
	}
	for in, want := range cases {
		if got := titleCase(in); got != want {
			t.Fatalf("titleCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClamp(t *testing.T) {
	cases := []struct{ i, n, want int }{
		{-1, 5, 0},
		{0, 5, 0},
		{7, 5, 4},
		{3, 0, 0},
	}
	for _, tc := range cases {
		if got := clamp(tc.i, tc.n); got != tc.want {
			t.Fatalf("clamp(%d, %d) = %d, want %d", tc.i, tc.n, got, tc.want)
		}
	}
}

func TestScrollWindow_KeepsCursorVisible(t *testing.T) {
	lines := []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}
	got := scrollWindow(lines, 9, 4)
	if got != "6\n7\n8\n9" {
		t.Fatalf("scrollWindow bottom = %q", got)
	}
	got = scrollWindow(lines, 0, 4)
	if got != "0\n1\n2\n3" {
		t.Fatalf("scrollWindow top = %q", got)
	}
}

func TestResolveRole(t *testing.T) {
	roles := rolesFixture()
	if got := resolveRole(roles, " admin "); got != "r1" {
		t.Fatalf("resolveRole by name = %q, want r1", got)
	}
	if got := resolveRole(roles, "r2"); got != "r2" {
		t.Fatalf("resolveRole by id = %q, want r2", got)
	}
	if got := resolveRole(roles, "custom"); got != "custom" {
		t.Fatalf("resolveRole passthrough = %q, want custom", got)
	}
	if got := resolveRole(roles, ""); got != "" {
		t.Fatalf("resolveRole empty = %q, want empty", got)
	}
}
