package textutil

import "testing"

func TestCleanTitle(t *testing.T) {
	for input, want := range map[string]string{
		"THE EVENING STAR.":          "The Evening Star",
		"the evening star":           "The Evening Star",
		"  The Washington Times.  ":  "The Washington Times",
		"The McClure Daily Dispatch": "The McClure Daily Dispatch",
		"":                           "",
		"   ":                        "",
	} {
		if got := CleanTitle(input); got != want {
			t.Errorf("CleanTitle(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestJoinPlace(t *testing.T) {
	if got := JoinPlace("springfield", "illinois"); got != "springfield, illinois" {
		t.Errorf("JoinPlace = %q", got)
	}
	if got := JoinPlace(" ", ""); got != "Unknown" {
		t.Errorf("JoinPlace on empty parts = %q", got)
	}
	if got := JoinPlace("washington"); got != "washington" {
		t.Errorf("JoinPlace single = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate short = %q", got)
	}
	if got := Truncate("a very long newspaper title", 10); got != "a very lo…" {
		t.Errorf("Truncate long = %q", got)
	}
	if got := Truncate("ünïcode títle", 7); got != "ünïcod…" {
		t.Errorf("Truncate runes = %q", got)
	}
	if got := Truncate("anything", 0); got != "" {
		t.Errorf("Truncate zero = %q", got)
	}
}
