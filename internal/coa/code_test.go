package coa

import "testing"

func TestIsCode(t *testing.T) {
	valid := []string{"1", "1.1", "1.1.01", "1.1.01.01", "42.007"}
	for _, c := range valid {
		if !IsCode(c) {
			t.Errorf("IsCode(%q) = false, want true", c)
		}
	}
	invalid := []string{"", ".", "1.", ".1", "1..1", "a.1", "1.1a", "1 .1"}
	for _, c := range invalid {
		if IsCode(c) {
			t.Errorf("IsCode(%q) = true, want false", c)
		}
	}
}

func TestLevel(t *testing.T) {
	cases := map[string]int{
		"1":         1,
		"1.1":       2,
		"1.1.01":    3,
		"1.1.01.01": 4,
		"":          0,
		"1..2":      0,
	}
	for code, want := range cases {
		if got := Level(code); got != want {
			t.Errorf("Level(%q) = %d, want %d", code, got, want)
		}
	}
}

func TestParent(t *testing.T) {
	cases := map[string]string{
		"1.1.01.01": "1.1.01",
		"1.1":       "1",
		"1":         "",
	}
	for code, want := range cases {
		if got := Parent(code); got != want {
			t.Errorf("Parent(%q) = %q, want %q", code, got, want)
		}
	}
}

func TestIsChildOf(t *testing.T) {
	if !IsChildOf("1.1.01", "1.1") {
		t.Error("1.1.01 should be a child of 1.1")
	}
	if IsChildOf("1.1.01", "1") {
		t.Error("1.1.01 is a grandchild of 1, not a child")
	}
	if IsChildOf("1.1", "1.1") {
		t.Error("a code is not its own child")
	}
	// "1.10" is not under "1.1" even though it shares the prefix text.
	if IsChildOf("1.10.01", "1.1") {
		t.Error("prefix match must respect segment boundaries")
	}
}
