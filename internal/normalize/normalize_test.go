package normalize_test

import (
	"strings"
	"testing"

	"github.com/MrWong99/jielong/internal/normalize"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	n := normalize.New(normalize.WithVariants(map[rune]rune{'紅': '红', '鄉': '乡'}))

	tests := []struct {
		in   string
		want string
	}{
		{in: "东方紅魔鄉", want: "东方红魔乡"},
		{in: "  乡 愁 ", want: "乡愁"},
		{in: "「红魔」！", want: "红魔"},
		{in: "幻想（乡）", want: "幻想乡"},
		{in: "ＡＢＣ乡", want: "abc乡"},
		{in: "Ｘ乡", want: "乡"},
		{in: "U.N.OWEN", want: "unowen"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		if got := n.Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalize_NoVariants(t *testing.T) {
	t.Parallel()
	n := normalize.New()
	if got := n.Normalize("紅"); got != "紅" {
		t.Errorf("Normalize(%q) = %q, want unchanged", "紅", got)
	}
}

func TestHasWordBoundary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{in: "乡愁", want: false},
		{in: "a乡", want: true},
		{in: "乡9", want: true},
		{in: "_乡", want: true},
		{in: "", want: false},
	}
	for _, tt := range tests {
		if got := normalize.HasWordBoundary(tt.in); got != tt.want {
			t.Errorf("HasWordBoundary(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDecodeVariants(t *testing.T) {
	t.Parallel()

	got, err := normalize.DecodeVariants(strings.NewReader("紅: 红\n鄉: 乡\n"))
	if err != nil {
		t.Fatalf("DecodeVariants: %v", err)
	}
	if got['紅'] != '红' || got['鄉'] != '乡' {
		t.Errorf("DecodeVariants = %v", got)
	}

	if _, err := normalize.DecodeVariants(strings.NewReader("紅魔: 红魔\n")); err == nil {
		t.Error("expected error for multi-character key, got nil")
	}
}
