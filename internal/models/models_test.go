package models

import (
	"encoding/json"
	"math"
	"testing"
)

func TestBadgeImageUnmarshalPlainString(t *testing.T) {
	var img BadgeImage
	if err := json.Unmarshal([]byte(`"https://example.com/logo.png"`), &img); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if img.Src != "https://example.com/logo.png" {
		t.Errorf("src = %q", img.Src)
	}
	if !img.Cover {
		t.Error("plain-string images should cover the artboard")
	}
	if img.Scale != 1 {
		t.Errorf("scale = %v, want 1", img.Scale)
	}
}

func TestBadgeImageUnmarshalObject(t *testing.T) {
	var img BadgeImage
	data := `{"src":"logo.png","x":10,"y":20,"scale":0.5}`
	if err := json.Unmarshal([]byte(data), &img); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if img.Cover {
		t.Error("positioned images should not cover")
	}
	if img.X != 10 || img.Y != 20 || img.Scale != 0.5 {
		t.Errorf("got %+v", img)
	}

	// A missing scale defaults to 1:1.
	var defaulted BadgeImage
	if err := json.Unmarshal([]byte(`{"src":"logo.png"}`), &defaulted); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if defaulted.Scale != 1 {
		t.Errorf("scale = %v, want 1", defaulted.Scale)
	}
}

func TestBadgeUnmarshalMixedImageForms(t *testing.T) {
	data := `{
		"backgroundColor": "#fff",
		"lines": [{"text": "Jane"}],
		"backgroundImage": "bg.png",
		"logo": {"src": "logo.png", "x": 5, "y": 5, "scale": 2}
	}`

	var badge Badge
	if err := json.Unmarshal([]byte(data), &badge); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if badge.BackgroundImage == nil || !badge.BackgroundImage.Cover {
		t.Error("string-form background image should cover")
	}
	if badge.Logo == nil || badge.Logo.Cover {
		t.Error("object-form logo should be positioned")
	}
}

func TestNormalizeAlignment(t *testing.T) {
	tests := []struct {
		in   TextAlign
		want TextAlign
	}{
		{AlignLeft, AlignLeft},
		{AlignRight, AlignRight},
		{AlignCenter, AlignCenter},
		{"", AlignCenter},
		{"justify", AlignCenter},
	}
	for _, tt := range tests {
		if got := NormalizeAlignment(tt.in); got != tt.want {
			t.Errorf("NormalizeAlignment(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeSize(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"nan", math.NaN(), DefaultFontSize},
		{"positive infinity", math.Inf(1), DefaultFontSize},
		{"negative infinity", math.Inf(-1), DefaultFontSize},
		{"zero", 0, DefaultFontSize},
		{"negative", -4, DefaultFontSize},
		{"valid", 22, 22},
		{"small but valid", 2, 2},
	}
	for _, tt := range tests {
		if got := NormalizeSize(tt.in); got != tt.want {
			t.Errorf("%s: NormalizeSize(%v) = %v, want %v", tt.name, tt.in, got, tt.want)
		}
	}
}

func TestCleanLineText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Jane Doe", "Jane Doe"},
		{"  spaced  ", "spaced"},
		{`"quoted"`, "quoted"},
		{`  "quoted and spaced"  `, "quoted and spaced"},
		{`""`, ""},
		{`say "hi" there`, `say "hi" there`},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CleanLineText(tt.in); got != tt.want {
			t.Errorf("CleanLineText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
