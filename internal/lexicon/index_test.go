package lexicon_test

import (
	"bytes"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/MrWong99/jielong/internal/lexicon"
	"github.com/MrWong99/jielong/internal/normalize"
)

// mapResolver resolves characters from a fixed table and falls back to the
// character itself.
type mapResolver map[rune][]string

func (m mapResolver) Resolve(c rune) []string {
	if t, ok := m[c]; ok {
		return t
	}
	return []string{string(c)}
}

var testResolver = mapResolver{
	'东': {"dong"},
	'方': {"fang"},
	'红': {"hong"},
	'魔': {"mo"},
	'乡': {"xiang"},
	'愁': {"chou"},
	'长': {"zhang", "chang"},
	'城': {"cheng"},
	'老': {"lao"},
	'香': {"xiang"},
	'霖': {"lin"},
	'堂': {"tang"},
	'相': {"xiang"},
	'想': {"xiang"},
	'幻': {"huan"},
}

func newIndex(opts ...lexicon.Option) *lexicon.Index {
	return lexicon.New(testResolver, opts...)
}

func TestIndexWord_LooseAndStrict(t *testing.T) {
	t.Parallel()
	ix := newIndex()

	words := []string{"东方红魔乡", "乡愁", "长城", "城长", "香霖堂"}
	for _, w := range words {
		ix.IndexWord(w, lexicon.Entry{Category: "test", Display: w})
	}

	for _, w := range words {
		r := []rune(w)
		for _, tone := range testResolver.Resolve(r[0]) {
			if !slices.Contains(ix.Lookup(tone, false, false), w) {
				t.Errorf("%s missing from loose start bucket %q", w, tone)
			}
		}
		for _, tone := range testResolver.Resolve(r[len(r)-1]) {
			if !slices.Contains(ix.Lookup(tone, true, false), w) {
				t.Errorf("%s missing from loose end bucket %q", w, tone)
			}
		}
	}

	// 长 is ambiguous and uncurated: 长城 has no strict start bucket.
	if slices.Contains(ix.Lookup("zhang", false, true), "长城") || slices.Contains(ix.Lookup("chang", false, true), "长城") {
		t.Error("ambiguous 长城 must not be strictly indexed at its start")
	}
	if !slices.Contains(ix.Lookup("cheng", true, true), "长城") {
		t.Error("长城 should be strictly indexed at its end under cheng")
	}

	wantStart := []lexicon.Unknown{{Word: "长城", Tones: []string{"zhang", "chang"}}}
	if diff := cmp.Diff(wantStart, ix.Unknown(lexicon.Start)); diff != "" {
		t.Errorf("Unknown(Start) mismatch (-want +got):\n%s", diff)
	}
	wantEnd := []lexicon.Unknown{{Word: "城长", Tones: []string{"zhang", "chang"}}}
	if diff := cmp.Diff(wantEnd, ix.Unknown(lexicon.End)); diff != "" {
		t.Errorf("Unknown(End) mismatch (-want +got):\n%s", diff)
	}
}

func TestIndexWord_StrictIsExclusive(t *testing.T) {
	t.Parallel()
	ix := newIndex(lexicon.WithOverrides(map[string]string{"长城": "chang"}, nil))
	ix.IndexWord("长城", lexicon.Entry{})

	count := 0
	for _, tone := range []string{"zhang", "chang"} {
		if slices.Contains(ix.Lookup(tone, false, true), "长城") {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("长城 in %d strict start buckets, want exactly 1", count)
	}
	if !slices.Contains(ix.Lookup("chang", false, true), "长城") {
		t.Error("override tone chang not used for strict start bucket")
	}
	if len(ix.Unknown(lexicon.Start)) != 0 {
		t.Errorf("curated word reported as unknown: %v", ix.Unknown(lexicon.Start))
	}
}

func TestIndexWord_OverrideWinsOverSingleReading(t *testing.T) {
	t.Parallel()
	ix := newIndex(lexicon.WithOverrides(nil, map[string]string{"东方红魔乡": "hsiang"}))
	ix.IndexWord("东方红魔乡", lexicon.Entry{})

	if !slices.Contains(ix.Lookup("hsiang", true, true), "东方红魔乡") {
		t.Error("trailing override not applied to strict end bucket")
	}
	if slices.Contains(ix.Lookup("xiang", true, true), "东方红魔乡") {
		t.Error("strict end bucket should only use the override")
	}
	if !slices.Contains(ix.Lookup("xiang", true, false), "东方红魔乡") {
		t.Error("loose end bucket should still use resolved tones")
	}
}

func TestIndexWord_SkipsSingleCharacter(t *testing.T) {
	t.Parallel()
	ix := newIndex()

	if ix.IndexWord("乡", lexicon.Entry{}) {
		t.Error("IndexWord(乡) = true, want false")
	}
	if ix.Contains("乡") || ix.Len() != 0 {
		t.Error("single-character word was stored")
	}
	if got := ix.Lookup("xiang", false, false); len(got) != 0 {
		t.Errorf("Lookup(xiang) = %v, want empty", got)
	}
}

func TestIndexWord_Idempotent(t *testing.T) {
	t.Parallel()
	ix := newIndex()

	if !ix.IndexWord("乡愁", lexicon.Entry{Category: "a", Display: "乡愁"}) {
		t.Fatal("first IndexWord = false, want true")
	}
	before := slices.Clone(ix.Lookup("xiang", false, false))

	if ix.IndexWord("乡愁", lexicon.Entry{Category: "b", Display: "「乡愁」"}) {
		t.Error("second IndexWord = true, want false")
	}
	if diff := cmp.Diff(before, ix.Lookup("xiang", false, false)); diff != "" {
		t.Errorf("re-indexing changed buckets (-before +after):\n%s", diff)
	}
	e, _ := ix.Entry("乡愁")
	if e.Category != "b" || e.Display != "「乡愁」" {
		t.Errorf("Entry after re-index = %+v, want latest metadata", e)
	}
	if ix.Len() != 1 {
		t.Errorf("Len = %d, want 1", ix.Len())
	}
}

func TestLookup_UnknownTone(t *testing.T) {
	t.Parallel()
	ix := newIndex()
	ix.IndexWord("乡愁", lexicon.Entry{})

	for _, strict := range []bool{false, true} {
		for _, reverse := range []bool{false, true} {
			if got := ix.Lookup("nope", reverse, strict); len(got) != 0 {
				t.Errorf("Lookup(nope, %v, %v) = %v, want empty", reverse, strict, got)
			}
		}
	}
}

func TestNextTones(t *testing.T) {
	t.Parallel()
	ix := newIndex(lexicon.WithOverrides(map[string]string{"长城": "chang"}, nil))

	tests := []struct {
		name    string
		word    string
		reverse bool
		strict  bool
		want    []string
	}{
		{name: "forward uses last char", word: "东方红魔乡", want: []string{"xiang"}},
		{name: "reverse uses first char", word: "东方红魔乡", reverse: true, want: []string{"dong"}},
		{name: "loose polyphone", word: "城长", want: []string{"zhang", "chang"}},
		{name: "strict uncurated polyphone takes first reading", word: "城长", strict: true, want: []string{"zhang"}},
		{name: "strict reverse uses leading override", word: "长城", reverse: true, strict: true, want: []string{"chang"}},
		{name: "empty word", word: "", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ix.NextTones(tt.word, tt.reverse, tt.strict)
			if !slices.Equal(got, tt.want) {
				t.Errorf("NextTones(%q, %v, %v) = %v, want %v", tt.word, tt.reverse, tt.strict, got, tt.want)
			}
		})
	}
}

func TestChainExample(t *testing.T) {
	t.Parallel()
	ix := newIndex()
	ix.IndexWord("东方红魔乡", lexicon.Entry{})
	ix.IndexWord("乡愁", lexicon.Entry{})

	tones := ix.NextTones("东方红魔乡", false, false)
	if !slices.Equal(tones, []string{"xiang"}) {
		t.Fatalf("NextTones = %v, want [xiang]", tones)
	}
	if !slices.Contains(ix.Lookup("xiang", false, false), "乡愁") {
		t.Error("乡愁 should follow 东方红魔乡")
	}
}

func TestAddLibrary(t *testing.T) {
	t.Parallel()
	n := normalize.New(normalize.WithVariants(map[rune]rune{'紅': '红', '鄉': '乡'}))

	tests := []struct {
		name     string
		lib      lexicon.Library
		wantKeys []string
		display  map[string]string
	}{
		{
			name:     "plain drops ASCII boundaries",
			lib:      lexicon.Library{Name: "作品", Kind: lexicon.KindPlain, Items: []string{"东方紅魔鄉", "东方Project", "ZUN帽"}},
			wantKeys: []string{"东方红魔乡"},
			display:  map[string]string{"东方红魔乡": "东方红魔乡"},
		},
		{
			name:     "spell card name and signed variant",
			lib:      lexicon.Library{Name: "符卡 / 红", Kind: lexicon.KindSpellCard, Items: []string{"恋符「极限火花」"}},
			wantKeys: []string{"极限火花", "恋符极限火花"},
			display:  map[string]string{"极限火花": "「极限火花」", "恋符极限火花": "恋符「极限火花」"},
		},
		{
			name:     "spell card with spaced name",
			lib:      lexicon.Library{Name: "符卡 / 妖", Kind: lexicon.KindSpellCard, Items: []string{"「幻想 乡愁」"}},
			wantKeys: []string{"幻想", "幻想乡愁"},
			display:  map[string]string{"幻想": "「幻想」", "幻想乡愁": "「幻想 乡愁」"},
		},
		{
			name:     "music splits on wave dash",
			lib:      lexicon.Library{Name: "音乐", Kind: lexicon.KindMusic, Items: []string{"少女秘封俱乐部～秘封(Arrange)"}},
			wantKeys: []string{"少女秘封俱乐部", "秘封", "少女秘封俱乐部秘封"},
			display:  map[string]string{"少女秘封俱乐部秘封": "少女秘封俱乐部～秘封"},
		},
		{
			name:     "spell card without quotes is skipped",
			lib:      lexicon.Library{Name: "符卡", Kind: lexicon.KindSpellCard, Items: []string{"没有引号"}},
			wantKeys: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ix := newIndex()
			added := ix.AddLibrary(tt.lib, n)
			if added != len(tt.wantKeys) {
				t.Errorf("AddLibrary added %d, want %d (words: %v)", added, len(tt.wantKeys), ix.Words())
			}
			if diff := cmp.Diff(tt.wantKeys, ix.Words()); diff != "" {
				t.Errorf("Words mismatch (-want +got):\n%s", diff)
			}
			for key, want := range tt.display {
				e, ok := ix.Entry(key)
				if !ok {
					t.Errorf("Entry(%q) missing", key)
					continue
				}
				if e.Display != want {
					t.Errorf("Entry(%q).Display = %q, want %q", key, e.Display, want)
				}
				if e.Category != tt.lib.Name {
					t.Errorf("Entry(%q).Category = %q, want %q", key, e.Category, tt.lib.Name)
				}
			}
		})
	}
}

func TestDecodeLibraries(t *testing.T) {
	t.Parallel()

	doc := `
- name: 角色 / 东方红魔乡
  group: character
  items: [红美铃, 十六夜咲夜]
- name: 音乐
  kind: music
  items: [亡灵公主～幽雅]
`
	libs, err := lexicon.DecodeLibraries(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("DecodeLibraries: %v", err)
	}
	if len(libs) != 2 {
		t.Fatalf("got %d libraries, want 2", len(libs))
	}
	if libs[0].Kind != lexicon.KindPlain {
		t.Errorf("default kind = %q, want %q", libs[0].Kind, lexicon.KindPlain)
	}
	if libs[0].Group != "character" {
		t.Errorf("group = %q, want character", libs[0].Group)
	}

	_, err = lexicon.DecodeLibraries(strings.NewReader("- name: x\n  kind: poem\n"))
	if err == nil {
		t.Error("expected error for unknown kind, got nil")
	}
	_, err = lexicon.DecodeLibraries(strings.NewReader("- name: x\n  colour: red\n"))
	if err == nil {
		t.Error("expected error for unknown field, got nil")
	}
}

func TestSearch(t *testing.T) {
	t.Parallel()
	ix := newIndex()
	for _, w := range []string{"东方红魔乡", "乡愁", "香霖堂", "幻想乡"} {
		ix.IndexWord(w, lexicon.Entry{})
	}

	got := ix.Search([]string{"xiang"}, nil, false)
	if diff := cmp.Diff([]string{"乡愁", "香霖堂"}, got); diff != "" {
		t.Errorf("Search(start=xiang) mismatch (-want +got):\n%s", diff)
	}
	got = ix.Search(nil, []string{"xiang"}, false)
	if diff := cmp.Diff([]string{"东方红魔乡", "幻想乡"}, got); diff != "" {
		t.Errorf("Search(end=xiang) mismatch (-want +got):\n%s", diff)
	}
	got = ix.Search([]string{"huan"}, []string{"xiang"}, false)
	if diff := cmp.Diff([]string{"幻想乡"}, got); diff != "" {
		t.Errorf("Search(huan…xiang) mismatch (-want +got):\n%s", diff)
	}
	if got := ix.Search(nil, nil, false); got != nil {
		t.Errorf("Search(nil, nil) = %v, want nil", got)
	}
	if got := ix.Includes("魔"); !slices.Equal(got, []string{"东方红魔乡"}) {
		t.Errorf("Includes(魔) = %v", got)
	}
}

func TestSuggest_Homophone(t *testing.T) {
	t.Parallel()
	ix := newIndex()
	for _, w := range []string{"东方红魔乡", "乡愁", "香霖堂"} {
		ix.IndexWord(w, lexicon.Entry{})
	}

	s := lexicon.NewSuggester()
	got, score, ok := s.Suggest(ix, "相愁")
	if !ok {
		t.Fatal("Suggest(相愁) matched=false, want true")
	}
	if got != "乡愁" {
		t.Errorf("Suggest(相愁) = %q, want 乡愁", got)
	}
	if score < 0.99 {
		t.Errorf("homophone score = %f, want ~1", score)
	}

	if _, _, ok := s.Suggest(ix, "老"); ok {
		t.Error("single character input should not match")
	}
}

func TestWriteReport(t *testing.T) {
	t.Parallel()
	ix := newIndex()
	ix.IndexWord("长城", lexicon.Entry{})

	var buf bytes.Buffer
	if err := ix.WriteReport(&buf); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "leading:") || !strings.Contains(out, "长城") || !strings.Contains(out, "zhang") {
		t.Errorf("report missing entries:\n%s", out)
	}
}
