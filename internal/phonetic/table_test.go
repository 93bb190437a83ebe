package phonetic_test

import (
	"slices"
	"strings"
	"testing"

	"github.com/MrWong99/jielong/internal/phonetic"
)

const testReadings = `
xiāng: 乡香相
xiàng: 相象
hóng: 红紅
zhǎng: 长
cháng: 长常
`

const testMarkers = `
ā: [a, "1"]
á: [a, "2"]
ǎ: [a, "3"]
à: [a, "4"]
ó: [o, "2"]
`

func newTestTable(t *testing.T) *phonetic.Table {
	t.Helper()
	tbl, err := phonetic.Load(strings.NewReader(testReadings), strings.NewReader(testMarkers))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return tbl
}

func TestResolve(t *testing.T) {
	t.Parallel()
	tbl := newTestTable(t)

	tests := []struct {
		name string
		char rune
		want []string
	}{
		{name: "single reading", char: '乡', want: []string{"xiang"}},
		{name: "same code after marker removal is deduplicated", char: '相', want: []string{"xiang"}},
		{name: "polyphone keeps row order", char: '长', want: []string{"zhang", "chang"}},
		{name: "untabulated char resolves to itself", char: '龍', want: []string{"龍"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tbl.Resolve(tt.char)
			if !slices.Equal(got, tt.want) {
				t.Errorf("Resolve(%q) = %v, want %v", tt.char, got, tt.want)
			}
		})
	}
}

func TestResolve_Deterministic(t *testing.T) {
	t.Parallel()
	tbl := newTestTable(t)

	first := tbl.Resolve('长')
	for range 20 {
		if got := tbl.Resolve('长'); !slices.Equal(got, first) {
			t.Fatalf("Resolve not deterministic: %v then %v", first, got)
		}
	}
}

func TestResolveWithPitch(t *testing.T) {
	t.Parallel()
	tbl := newTestTable(t)

	got := tbl.ResolveWithPitch('相')
	want := []string{"xiang1", "xiang4"}
	if !slices.Equal(got, want) {
		t.Errorf("ResolveWithPitch('相') = %v, want %v", got, want)
	}

	if got := tbl.ResolveWithPitch('龍'); !slices.Equal(got, []string{"龍"}) {
		t.Errorf("ResolveWithPitch('龍') = %v, want [龍]", got)
	}
}

func TestIsPolyphone(t *testing.T) {
	t.Parallel()
	tbl := newTestTable(t)

	if !tbl.IsPolyphone('长') {
		t.Error("IsPolyphone('长') = false, want true")
	}
	if tbl.IsPolyphone('相') {
		t.Error("IsPolyphone('相') = true, want false (both readings share a code)")
	}
}

func TestDecodeReadings_RejectsNonMapping(t *testing.T) {
	t.Parallel()
	_, err := phonetic.DecodeReadings(strings.NewReader("- a\n- b\n"))
	if err == nil {
		t.Fatal("expected error for sequence document, got nil")
	}
}

func TestDecodeMarkers_RejectsMultiLetterKey(t *testing.T) {
	t.Parallel()
	_, err := phonetic.DecodeMarkers(strings.NewReader("ab: [a, \"1\"]\n"))
	if err == nil {
		t.Fatal("expected error for multi-letter marker key, got nil")
	}
}
