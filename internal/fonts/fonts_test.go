package fonts

import (
	"math"
	"testing"
)

func TestNormalizeFamily(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Roboto", "Roboto"},
		{"Oswald", "Oswald"},
		{"", DefaultFamily},
		{"Comic Sans", DefaultFamily},
		{"roboto", DefaultFamily}, // catalog names are exact
	}
	for _, tt := range tests {
		if got := NormalizeFamily(tt.in); got != tt.want {
			t.Errorf("NormalizeFamily(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestApproxWidth(t *testing.T) {
	if got := ApproxWidth("abcd", 10); math.Abs(got-24) > 1e-9 {
		t.Errorf("ApproxWidth = %v, want 24", got)
	}
	if got := ApproxWidth("", 10); got != 0 {
		t.Errorf("ApproxWidth of empty text = %v, want 0", got)
	}
	// Rune count, not byte count.
	if got := ApproxWidth("äöü", 10); math.Abs(got-18) > 1e-9 {
		t.Errorf("ApproxWidth of multibyte text = %v, want 18", got)
	}
}

func TestProviderMeasureWidth(t *testing.T) {
	p, err := NewProvider()
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}

	w := p.MeasureWidth("Jane Doe", 18, "Roboto", false, false)
	if w <= 0 {
		t.Fatalf("width = %v, want positive", w)
	}

	// Identical inputs must measure identically; the shrink search depends
	// on it.
	if w2 := p.MeasureWidth("Jane Doe", 18, "Roboto", false, false); w2 != w {
		t.Errorf("measurement not deterministic: %v vs %v", w, w2)
	}

	// Longer text is wider, bigger size is wider.
	if p.MeasureWidth("Jane Doe Jr", 18, "Roboto", false, false) <= w {
		t.Error("longer text did not measure wider")
	}
	if p.MeasureWidth("Jane Doe", 24, "Roboto", false, false) <= w {
		t.Error("larger size did not measure wider")
	}

	if p.MeasureWidth("", 18, "Roboto", false, false) != 0 {
		t.Error("empty text should measure 0")
	}
}

func TestProviderUnknownFamilyStillMeasures(t *testing.T) {
	p, err := NewProvider()
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}

	known := p.MeasureWidth("Badge", 18, DefaultFamily, false, false)
	unknown := p.MeasureWidth("Badge", 18, "No Such Font", false, false)
	if unknown != known {
		t.Errorf("unknown family measured %v, want the default family's %v", unknown, known)
	}
}

func TestProviderStyles(t *testing.T) {
	p, err := NewProvider()
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}

	for _, style := range []struct {
		bold, italic bool
	}{
		{false, false}, {true, false}, {false, true}, {true, true},
	} {
		face := p.Face("Roboto", style.bold, style.italic, 18)
		if face == nil {
			t.Errorf("no face for bold=%v italic=%v", style.bold, style.italic)
		}
	}

	if p.Face("Roboto", false, false, 0) != nil {
		t.Error("expected nil face for a non-positive size")
	}
}
