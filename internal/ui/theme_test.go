package ui

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestGetTheme_UnknownFallsBackToNightfox(t *testing.T) {
	if got := GetTheme("Dracula").Name; got != "Nightfox" {
		t.Fatalf("GetTheme(Dracula) = %q, want Nightfox", got)
	}
	if got := GetTheme("Kanagawa").Name; got != "Kanagawa" {
		t.Fatalf("GetTheme(Kanagawa) = %q, want Kanagawa", got)
	}
}

func TestThemeNames(t *testing.T) {
	names := ThemeNames()
	want := []string{"Nightfox", "Kanagawa", "Slate"}
	if len(names) != len(want) {
		t.Fatalf("ThemeNames() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("ThemeNames()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestNextTheme(t *testing.T) {
	cases := map[string]string{
		"Nightfox": "Kanagawa",
		"Kanagawa": "Slate",
		"Slate":    "Nightfox",
		"unknown":  "Nightfox",
	}
	for in, want := range cases {
		if got := NextTheme(in); got != want {
			t.Fatalf("NextTheme(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestThemes_CoverStatusAndToastKinds(t *testing.T) {
	for _, name := range ThemeNames() {
		th := GetTheme(name)
		for _, kind := range []string{"active", "archived", "info", "success", "error"} {
			if th.StatusColors[kind] == "" {
				t.Fatalf("%s: missing status color %q", name, kind)
			}
		}
	}
}

func TestStatusStyle_UnknownUsesMuted(t *testing.T) {
	th := GetTheme("Slate")
	styles := th.Styles()

	got := styles.StatusStyle("paused").GetBackground()
	if got != styles.StatusStyle("").GetBackground() {
		t.Fatalf("unknown statuses should share the muted badge")
	}
	if styles.StatusStyle("active").GetBackground() == got {
		t.Fatalf("active badge should not use the muted color")
	}
}

func TestWithBackground_KeepsSelectionColors(t *testing.T) {
	th := GetTheme("Nightfox")
	styles := th.Styles().WithBackground(th.Surface)

	for name, st := range map[string]lipgloss.Style{
		"Text": styles.Text, "MutedText": styles.MutedText, "DangerText": styles.DangerText, "Header": styles.Header,
	} {
		if got := st.GetBackground(); got != lipgloss.Color(th.Surface) {
			t.Fatalf("%s background = %v, want %s", name, got, th.Surface)
		}
	}
	if got := styles.Selected.GetBackground(); got != lipgloss.Color(th.SelectionBg) {
		t.Fatalf("Selected background = %v, want %s", got, th.SelectionBg)
	}
	if th.Styles().Text.GetBackground() == lipgloss.Color(th.Surface) {
		t.Fatal("WithBackground must not modify the original styles")
	}
}
