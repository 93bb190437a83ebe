package commands_test

import (
	"context"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/MrWong99/jielong/internal/chain"
	chainmock "github.com/MrWong99/jielong/internal/chain/mock"
	"github.com/MrWong99/jielong/internal/discord"
	"github.com/MrWong99/jielong/internal/discord/commands"
	"github.com/MrWong99/jielong/internal/discord/mock"
	"github.com/MrWong99/jielong/internal/lexicon"
	"github.com/MrWong99/jielong/internal/normalize"
	"github.com/MrWong99/jielong/internal/observe"
	"github.com/MrWong99/jielong/pkg/stats"
)

type identity struct{}

func (identity) Resolve(c rune) []string { return []string{string(c)} }

type harness struct {
	cmds   *commands.JielongCommands
	router *discord.CommandRouter
	engine *chain.Engine
	store  *stats.MemStore
}

// newHarness builds a vocabulary whose only playable start word is 山水.
func newHarness(t *testing.T) *harness {
	t.Helper()
	ix := lexicon.New(identity{})
	for _, w := range []string{"山水", "水果"} {
		ix.IndexWord(w, lexicon.Entry{Category: "地名", Group: "place", Display: w})
	}
	m, err := observe.NewMetrics(noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	eng := chain.New(ix,
		chain.WithScheduler(&chainmock.Scheduler{}),
		chain.WithClock(chainmock.NewClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))),
		chain.WithMetrics(m),
		chain.WithRand(rand.New(rand.NewPCG(1, 2))),
		chain.WithMentioner(discord.Mention),
	)
	h := &harness{
		engine: eng,
		store:  stats.NewMemStore(),
		router: discord.NewCommandRouter(),
	}
	h.cmds = commands.NewJielongCommands(eng, ix, normalize.New(), h.store, discord.NewPermissionChecker("admin", "mod"))
	h.cmds.Register(h.router)
	return h
}

func interaction(user string, roles []string, sub string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:      discordgo.InteractionApplicationCommand,
		ChannelID: "chan",
		Member:    &discordgo.Member{User: &discordgo.User{ID: user}, Roles: roles},
		Data: discordgo.ApplicationCommandInteractionData{
			Name: "jielong",
			Options: []*discordgo.ApplicationCommandInteractionDataOption{{
				Name:    sub,
				Type:    discordgo.ApplicationCommandOptionSubCommand,
				Options: opts,
			}},
		},
	}}
}

func strOpt(name, v string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: v}
}

func boolOpt(name string, v bool) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionBoolean, Value: v}
}

func (h *harness) call(t *testing.T, i *discordgo.InteractionCreate) *discordgo.InteractionResponse {
	t.Helper()
	resp := &mock.InteractionResponder{}
	h.router.Dispatch(resp, i)
	last := resp.LastResponse()
	if last == nil {
		t.Fatalf("no response")
	}
	return last
}

func ephemeral(r *discordgo.InteractionResponse) bool {
	return r.Data.Flags&discordgo.MessageFlagsEphemeral != 0
}

func TestDefinition(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	cmds := h.router.ApplicationCommands()
	if len(cmds) != 1 || cmds[0].Name != "jielong" {
		t.Fatalf("unexpected commands %+v", cmds)
	}
	var names []string
	for _, o := range cmds[0].Options {
		names = append(names, o.Name)
	}
	want := "start stop hint status warning play check info rank search"
	if got := strings.Join(names, " "); got != want {
		t.Errorf("subcommands = %q, want %q", got, want)
	}
}

func TestStartPlayStop(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	r := h.call(t, interaction("alice", nil, "start", boolOpt("warning", true)))
	if ephemeral(r) || !strings.Contains(r.Data.Content, "山水") {
		t.Fatalf("start response = %+v", r.Data)
	}

	r = h.call(t, interaction("bob", nil, "start"))
	if !ephemeral(r) {
		t.Errorf("second start should be refused privately, got %q", r.Data.Content)
	}

	r = h.call(t, interaction("bob", nil, "play", strOpt("word", "果水")))
	if !ephemeral(r) || !strings.Contains(r.Data.Content, "没有找到") {
		t.Errorf("unknown word response = %+v", r.Data)
	}

	r = h.call(t, interaction("bob", nil, "stop"))
	if !ephemeral(r) {
		t.Errorf("stop by a member who did not start should be refused, got %q", r.Data.Content)
	}

	r = h.call(t, interaction("mallory", []string{"mod"}, "stop"))
	if ephemeral(r) {
		t.Errorf("moderator stop failed: %q", r.Data.Content)
	}
	if h.engine.Registry().Live("chan") {
		t.Error("session still live after stop")
	}
}

func TestPlayEndsChain(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.call(t, interaction("alice", nil, "start"))
	r := h.call(t, interaction("bob", nil, "play", strOpt("word", " 水 果 ")))
	if ephemeral(r) {
		t.Fatalf("play rejected: %q", r.Data.Content)
	}
	if h.engine.Registry().Live("chan") {
		t.Error("dead end should end the session")
	}
}

func TestNoSession(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	for _, sub := range []string{"stop", "hint", "status"} {
		r := h.call(t, interaction("alice", nil, sub))
		if !ephemeral(r) || !strings.Contains(r.Data.Content, "没有进行中") {
			t.Errorf("%s without session: %+v", sub, r.Data)
		}
	}
}

func TestCheckAndInfo(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	r := h.call(t, interaction("alice", nil, "check", strOpt("word", "山水")))
	if !strings.Contains(r.Data.Content, "词库中有") {
		t.Errorf("check hit = %q", r.Data.Content)
	}
	r = h.call(t, interaction("alice", nil, "check", strOpt("word", "水")))
	if !strings.Contains(r.Data.Content, "山水，水果") {
		t.Errorf("check miss = %q", r.Data.Content)
	}

	r = h.call(t, interaction("alice", nil, "info", strOpt("word", "水果")))
	if len(r.Data.Embeds) != 1 {
		t.Fatalf("info response = %+v", r.Data)
	}
	e := r.Data.Embeds[0]
	if e.Title != "水果" || e.Fields[1].Value != "水" || e.Fields[2].Value != "果" {
		t.Errorf("info embed = %+v", e)
	}
}

func TestSearchNeedsAdmin(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	r := h.call(t, interaction("alice", []string{"mod"}, "search", strOpt("start", "水")))
	if !ephemeral(r) {
		t.Errorf("moderator search allowed: %q", r.Data.Content)
	}

	r = h.call(t, interaction("root", []string{"admin"}, "search", strOpt("start", "水"), strOpt("end", "果")))
	if ephemeral(r) || !strings.Contains(r.Data.Content, "共找到 1 个词：水果") {
		t.Errorf("admin search = %+v", r.Data)
	}
}

func TestRank(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	r := h.call(t, interaction("alice", nil, "rank"))
	if r.Data.Content != "还没有接龙记录。" {
		t.Errorf("empty rank = %q", r.Data.Content)
	}

	ctx := context.Background()
	for _, u := range []string{"bob", "bob", "carol"} {
		if err := h.store.RecordTurn(ctx, stats.Turn{UserID: u, Mode: "normal", Index: 1, At: time.Now()}); err != nil {
			t.Fatalf("RecordTurn: %v", err)
		}
	}
	r = h.call(t, interaction("alice", nil, "rank"))
	if len(r.Data.Embeds) != 1 {
		t.Fatalf("rank response = %+v", r.Data)
	}
	desc := r.Data.Embeds[0].Description
	if !strings.HasPrefix(desc, "1. <@bob>：2 次") || !strings.Contains(desc, "2. <@carol>：1 次") {
		t.Errorf("leaderboard = %q", desc)
	}

	user := &discordgo.ApplicationCommandInteractionDataOption{Name: "user", Type: discordgo.ApplicationCommandOptionUser, Value: "carol"}
	r = h.call(t, interaction("alice", nil, "rank", user))
	if len(r.Data.Embeds) != 1 || r.Data.Embeds[0].Fields[0].Value != "1" {
		t.Errorf("user rank = %+v", r.Data)
	}
}

func message(user, content string) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{Message: &discordgo.Message{
		ChannelID: "chan",
		Content:   content,
		Author:    &discordgo.User{ID: user},
	}}
}

func TestHandleMessage(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	s := &mock.Sender{}

	h.cmds.HandleMessage(s, message("bob", "水果"))
	if n := len(s.Messages()); n != 0 {
		t.Fatalf("messages without session = %d", n)
	}

	h.call(t, interaction("alice", nil, "start"))
	h.cmds.HandleMessage(s, message("bob", "随便聊聊"))
	if n := len(s.Messages()); n != 0 {
		t.Errorf("rejection without warnings produced %d messages", n)
	}

	h.cmds.HandleMessage(s, message("bob", "水果"))
	msgs := s.Messages()
	if len(msgs) != 1 || msgs[0].ChannelID != "chan" {
		t.Fatalf("messages = %+v", msgs)
	}
	if h.engine.Registry().Live("chan") {
		t.Error("session should have ended")
	}
}
