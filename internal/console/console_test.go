package console_test

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/MrWong99/jielong/internal/chain"
	"github.com/MrWong99/jielong/internal/chain/mock"
	"github.com/MrWong99/jielong/internal/console"
	"github.com/MrWong99/jielong/internal/lexicon"
	"github.com/MrWong99/jielong/internal/normalize"
)

type identity struct{}

func (identity) Resolve(c rune) []string { return []string{string(c)} }

// syncBuffer is a strings.Builder safe for the notifier goroutine.
type syncBuffer struct {
	mu sync.Mutex
	b  strings.Builder
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func newConsole(t *testing.T) (*console.Console, *chain.Engine, *mock.Scheduler, *syncBuffer) {
	t.Helper()
	ix := lexicon.New(identity{})
	for _, w := range []string{"山水", "水果"} {
		ix.IndexWord(w, lexicon.Entry{Category: "测试", Display: w})
	}
	out := &syncBuffer{}
	sched := &mock.Scheduler{}
	var c *console.Console
	eng := chain.New(ix,
		chain.WithScheduler(sched),
		chain.WithClock(mock.NewClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))),
		chain.WithRand(rand.New(rand.NewPCG(1, 2))),
		chain.WithNotifier(chain.NotifierFunc(func(ctx context.Context, ch, text string) {
			c.Notify(ctx, ch, text)
		})),
	)
	c = console.New(eng, normalize.New(), out)
	return c, eng, sched, out
}

func TestRun_PlaysUntilDeadEnd(t *testing.T) {
	t.Parallel()

	c, eng, _, out := newConsole(t)
	in := strings.NewReader("/status\n/start\n/user bob\n水果\n/quit\n不会读到\n")
	if err := c.Run(t.Context(), in); err != nil {
		t.Fatalf("Run: %v", err)
	}
	text := out.String()
	for _, want := range []string{"没有进行中的接龙", "第一个词是", "已切换到玩家 bob", "无法继续"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	if eng.Registry().Live(console.Channel) {
		t.Error("session still live")
	}
}

func TestHandle_ModesAndWarnings(t *testing.T) {
	t.Parallel()

	c, eng, _, out := newConsole(t)
	ctx := t.Context()
	c.Handle(ctx, "/start 严格 pk")
	snap, ok := eng.Snapshot(console.Channel)
	if !ok {
		t.Fatal("no session")
	}
	if diff := cmp.Diff(chain.Mode{Strict: true, PK: true}, snap.Mode); diff != "" {
		t.Errorf("mode mismatch (-want +got):\n%s", diff)
	}

	c.Handle(ctx, "/warning on")
	c.Handle(ctx, "不存在")
	if !strings.Contains(out.String(), "没有找到“不存在”") {
		t.Errorf("warning not shown:\n%s", out.String())
	}
	c.Handle(ctx, "/hint")
	if !strings.Contains(out.String(), "对战中不能查看提示") {
		t.Errorf("hint refusal missing:\n%s", out.String())
	}
}

func TestNotify_Timeout(t *testing.T) {
	t.Parallel()

	c, _, sched, out := newConsole(t)
	c.Handle(t.Context(), "/start")
	sched.Last().Fire()
	if !strings.Contains(out.String(), "无人成功应答") {
		t.Errorf("timeout notice missing:\n%s", out.String())
	}
}
