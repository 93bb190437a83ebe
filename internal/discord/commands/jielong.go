// Package commands implements the /jielong slash command and the plain
// message listener that feeds channel chat into the chain engine.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/jielong/internal/chain"
	"github.com/MrWong99/jielong/internal/discord"
	"github.com/MrWong99/jielong/internal/lexicon"
	"github.com/MrWong99/jielong/internal/normalize"
	"github.com/MrWong99/jielong/pkg/stats"
)

const (
	// maxListed caps how many words check and search print.
	maxListed = 20

	// rankSize is the length of the leaderboard.
	rankSize = 10

	requestTimeout = 5 * time.Second
)

// Texts shared by several handlers.
const (
	msgNoSession     = "当前频道没有进行中的接龙。"
	msgSessionActive = "当前频道已有进行中的接龙。"
	msgNeedAdmin     = "只有管理员可以使用词库搜索。"
	msgEmptyWord     = "请输入要查询的词。"
	msgStatsDown     = "统计数据暂时不可用。"
	msgNoStats       = "还没有接龙记录。"
)

// JielongCommands holds the dependencies of /jielong.
type JielongCommands struct {
	engine *chain.Engine
	index  *lexicon.Index
	norm   *normalize.Normalizer
	stats  stats.Store
	perms  *discord.PermissionChecker
}

// NewJielongCommands creates the command group. store may be nil, in which
// case rank reports that statistics are unavailable.
func NewJielongCommands(engine *chain.Engine, index *lexicon.Index, norm *normalize.Normalizer, store stats.Store, perms *discord.PermissionChecker) *JielongCommands {
	return &JielongCommands{
		engine: engine,
		index:  index,
		norm:   norm,
		stats:  store,
		perms:  perms,
	}
}

// Register registers /jielong and its subcommands with the router.
func (jc *JielongCommands) Register(router *discord.CommandRouter) {
	router.RegisterCommand("jielong", jc.Definition(), func(r discord.Responder, i *discordgo.InteractionCreate) {
		discord.RespondEphemeral(r, i, "请使用子命令，例如 `/jielong start`。")
	})
	router.RegisterHandler("jielong/start", jc.handleStart)
	router.RegisterHandler("jielong/stop", jc.handleStop)
	router.RegisterHandler("jielong/hint", jc.handleHint)
	router.RegisterHandler("jielong/status", jc.handleStatus)
	router.RegisterHandler("jielong/warning", jc.handleWarning)
	router.RegisterHandler("jielong/play", jc.handlePlay)
	router.RegisterHandler("jielong/check", jc.handleCheck)
	router.RegisterHandler("jielong/info", jc.handleInfo)
	router.RegisterHandler("jielong/rank", jc.handleRank)
	router.RegisterHandler("jielong/search", jc.handleSearch)
}

// Definition returns the ApplicationCommand definition for Discord.
func (jc *JielongCommands) Definition() *discordgo.ApplicationCommand {
	boolOpt := func(name, desc string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionBoolean, Name: name, Description: desc}
	}
	wordOpt := func(desc string, required bool) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionString, Name: "word", Description: desc, Required: required}
	}
	sub := func(name, desc string, opts ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        name,
			Description: desc,
			Options:     opts,
		}
	}
	return &discordgo.ApplicationCommand{
		Name:        "jielong",
		Description: "东方词汇接龙",
		Options: []*discordgo.ApplicationCommandOption{
			sub("start", "开始接龙",
				boolOpt("reverse", "反向接龙"),
				boolOpt("strict", "严格读音"),
				boolOpt("arcade", "街机模式"),
				boolOpt("pk", "对战模式"),
				boolOpt("warning", "开启错误提醒"),
			),
			sub("stop", "停止接龙"),
			sub("hint", "查看提示"),
			sub("status", "查看当前接龙状态"),
			sub("warning", "开关错误提醒", &discordgo.ApplicationCommandOption{
				Type: discordgo.ApplicationCommandOptionBoolean, Name: "on", Description: "是否开启", Required: true,
			}),
			sub("play", "接一个词", wordOpt("要接的词", true)),
			sub("check", "查询词库中是否有某个词", wordOpt("要查询的词", true)),
			sub("info", "查看词的读音与分类", wordOpt("要查询的词", true)),
			sub("rank", "查看接龙排行", &discordgo.ApplicationCommandOption{
				Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "查看某位玩家",
			}),
			sub("search", "按首尾读音搜索词库",
				&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionString, Name: "start", Description: "首字读音或汉字"},
				&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionString, Name: "end", Description: "尾字读音或汉字"},
				boolOpt("strict", "严格读音"),
			),
		},
	}
}

func (jc *JielongCommands) request(i *discordgo.InteractionCreate) chain.Request {
	return chain.Request{
		Channel:   i.ChannelID,
		UserID:    discord.UserID(i),
		Authority: jc.perms.InteractionAuthority(i),
	}
}

func (jc *JielongCommands) handleStart(r discord.Responder, i *discordgo.InteractionCreate) {
	opts := subcommandOptions(i)
	start := chain.StartOptions{Mode: chain.Mode{
		Reverse: boolOption(opts, "reverse"),
		Strict:  boolOption(opts, "strict"),
		Arcade:  boolOption(opts, "arcade"),
		PK:      boolOption(opts, "pk"),
	}}
	if o, ok := opts["warning"]; ok {
		v := o.BoolValue()
		start.Warnings = &v
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	resp, err := jc.engine.Start(ctx, jc.request(i), start)
	switch {
	case errors.Is(err, chain.ErrSessionActive):
		discord.RespondEphemeral(r, i, msgSessionActive)
		return
	case err != nil:
		slog.Error("commands: start failed", "channel_id", i.ChannelID, "err", err)
	}
	discord.Respond(r, i, resp.Text)
}

func (jc *JielongCommands) handleStop(r discord.Responder, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	jc.reply(r, i, func() (chain.Response, error) {
		return jc.engine.Stop(ctx, jc.request(i))
	})
}

func (jc *JielongCommands) handleHint(r discord.Responder, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	jc.reply(r, i, func() (chain.Response, error) {
		return jc.engine.Hint(ctx, jc.request(i))
	})
}

func (jc *JielongCommands) handleStatus(r discord.Responder, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	jc.reply(r, i, func() (chain.Response, error) {
		return jc.engine.Status(ctx, i.ChannelID)
	})
}

func (jc *JielongCommands) handleWarning(r discord.Responder, i *discordgo.InteractionCreate) {
	on := boolOption(subcommandOptions(i), "on")
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	jc.reply(r, i, func() (chain.Response, error) {
		return jc.engine.SetWarning(ctx, i.ChannelID, on)
	})
}

func (jc *JielongCommands) handlePlay(r discord.Responder, i *discordgo.InteractionCreate) {
	word := jc.norm.Normalize(stringOption(subcommandOptions(i), "word"))
	if word == "" {
		discord.RespondEphemeral(r, i, msgEmptyWord)
		return
	}
	req := jc.request(i)
	req.Word = word
	// A slash command always gets an answer, so rejections are spelled out.
	warn := true
	req.Warning = &warn

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	resp, err := jc.engine.Submit(ctx, req)
	switch {
	case errors.Is(err, chain.ErrNoSession):
		discord.RespondEphemeral(r, i, msgNoSession)
	case chain.IsRejection(err, ""):
		discord.RespondEphemeral(r, i, resp.Text)
	case err != nil:
		slog.Error("commands: submit failed", "channel_id", i.ChannelID, "err", err)
		discord.Respond(r, i, resp.Text)
	default:
		discord.Respond(r, i, resp.Text)
	}
}

// reply answers with the engine's text. Missing sessions and rejections are
// only shown to the caller.
func (jc *JielongCommands) reply(r discord.Responder, i *discordgo.InteractionCreate, call func() (chain.Response, error)) {
	resp, err := call()
	switch {
	case errors.Is(err, chain.ErrNoSession):
		discord.RespondEphemeral(r, i, msgNoSession)
	case chain.IsRejection(err, ""):
		discord.RespondEphemeral(r, i, resp.Text)
	case err != nil:
		slog.Error("commands: request failed", "channel_id", i.ChannelID, "err", err)
		discord.RespondEphemeral(r, i, fmt.Sprintf("出错了：%v", err))
	default:
		discord.Respond(r, i, resp.Text)
	}
}

func (jc *JielongCommands) handleCheck(r discord.Responder, i *discordgo.InteractionCreate) {
	word := jc.norm.Normalize(stringOption(subcommandOptions(i), "word"))
	if word == "" {
		discord.RespondEphemeral(r, i, msgEmptyWord)
		return
	}
	discord.Respond(r, i, jc.check(word))
}

func (jc *JielongCommands) check(word string) string {
	if e, ok := jc.index.Entry(word); ok {
		return fmt.Sprintf("词库中有“%s”（%s）。", e.Display, e.Category)
	}
	msg := "在词库中没有找到“" + word + "”。"
	if related := jc.displays(jc.index.Includes(word)); len(related) > 0 {
		msg += "\n包含该词的有：" + joinCapped(related)
	}
	return msg
}

func (jc *JielongCommands) handleInfo(r discord.Responder, i *discordgo.InteractionCreate) {
	word := jc.norm.Normalize(stringOption(subcommandOptions(i), "word"))
	e, ok := jc.index.Entry(word)
	if !ok {
		discord.RespondEphemeral(r, i, "在词库中没有找到“"+word+"”。")
		return
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "分类", Value: e.Category, Inline: true},
		{Name: "首字读音", Value: strings.Join(jc.index.NextTones(word, true, false), " / "), Inline: true},
		{Name: "尾字读音", Value: strings.Join(jc.index.NextTones(word, false, false), " / "), Inline: true},
	}
	if e.Group != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "类别", Value: e.Group, Inline: true})
	}
	discord.RespondEmbed(r, i, &discordgo.MessageEmbed{Title: e.Display, Fields: fields})
}

func (jc *JielongCommands) handleRank(r discord.Responder, i *discordgo.InteractionCreate) {
	if jc.stats == nil {
		discord.RespondEphemeral(r, i, msgStatsDown)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	opts := subcommandOptions(i)
	if o, ok := opts["user"]; ok {
		id, _ := o.Value.(string)
		t, err := jc.stats.Totals(ctx, id)
		switch {
		case errors.Is(err, stats.ErrUnknownPlayer):
			discord.RespondEphemeral(r, i, discord.Mention(id)+" 还没有接龙记录。")
		case err != nil:
			slog.Warn("commands: stats totals failed", "user_id", id, "err", err)
			discord.RespondEphemeral(r, i, msgStatsDown)
		default:
			discord.RespondEmbed(r, i, totalsEmbed(t))
		}
		return
	}

	top, err := jc.stats.Top(ctx, rankSize)
	if err != nil {
		slog.Warn("commands: stats top failed", "err", err)
		discord.RespondEphemeral(r, i, msgStatsDown)
		return
	}
	if len(top) == 0 {
		discord.Respond(r, i, msgNoStats)
		return
	}
	var b strings.Builder
	for n, t := range top {
		fmt.Fprintf(&b, "%d. %s：%d 次（反向 %d 次），最长 %d 个\n", n+1, discord.Mention(t.UserID), t.Turns, t.Reverse, t.BestIndex)
	}
	discord.RespondEmbed(r, i, &discordgo.MessageEmbed{Title: "接龙排行", Description: b.String()})
}

func totalsEmbed(t stats.Totals) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "接龙记录",
		Description: discord.Mention(t.UserID),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "成功接龙", Value: fmt.Sprint(t.Turns), Inline: true},
			{Name: "反向接龙", Value: fmt.Sprint(t.Reverse), Inline: true},
			{Name: "终结接龙", Value: fmt.Sprint(t.Terminations), Inline: true},
			{Name: "最长接龙", Value: fmt.Sprint(t.BestIndex), Inline: true},
			{Name: "街机最佳", Value: fmt.Sprint(t.BestArcade), Inline: true},
		},
	}
}

func (jc *JielongCommands) handleSearch(r discord.Responder, i *discordgo.InteractionCreate) {
	if jc.perms.InteractionAuthority(i) < discord.AuthorityAdmin {
		discord.RespondEphemeral(r, i, msgNeedAdmin)
		return
	}
	opts := subcommandOptions(i)
	found := jc.search(stringOption(opts, "start"), stringOption(opts, "end"), boolOption(opts, "strict"))
	if len(found) == 0 {
		discord.RespondEphemeral(r, i, "没有找到符合条件的词。")
		return
	}
	discord.Respond(r, i, fmt.Sprintf("共找到 %d 个词：%s", len(found), joinCapped(jc.displays(found))))
}

// search resolves its arguments to tones and queries the index. Arguments
// are lists of tone codes or characters separated by spaces or commas.
func (jc *JielongCommands) search(start, end string, strict bool) []string {
	return jc.index.Search(jc.tones(start), jc.tones(end), strict)
}

func (jc *JielongCommands) tones(arg string) []string {
	var out []string
	for _, f := range strings.FieldsFunc(arg, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == '，'
	}) {
		if r := []rune(f); len(r) == 1 && r[0] > unicode.MaxASCII {
			out = append(out, jc.index.Tones(r[0])...)
			continue
		}
		out = append(out, strings.ToLower(f))
	}
	return out
}

func (jc *JielongCommands) displays(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if e, ok := jc.index.Entry(k); ok {
			out = append(out, e.Display)
		}
	}
	return out
}

func joinCapped(words []string) string {
	if len(words) <= maxListed {
		return strings.Join(words, "，")
	}
	return strings.Join(words[:maxListed], "，") + fmt.Sprintf(" 等 %d 个", len(words))
}

// HandleMessage plays a plain channel message when the channel has a live
// session. Rejections only produce a reply when the session has warnings
// enabled.
func (jc *JielongCommands) HandleMessage(s discord.Sender, m *discordgo.MessageCreate) {
	if !jc.engine.Registry().Live(m.ChannelID) {
		return
	}
	word := jc.norm.Normalize(m.Content)
	if word == "" {
		return
	}
	req := chain.Request{
		Channel:   m.ChannelID,
		UserID:    m.Author.ID,
		Authority: jc.perms.Authority(m.Member),
		Word:      word,
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	resp, err := jc.engine.Submit(ctx, req)
	if err != nil && !chain.IsRejection(err, "") && !errors.Is(err, chain.ErrNoSession) {
		slog.Error("commands: message submit failed", "channel_id", m.ChannelID, "err", err)
	}
	if resp.Text == "" {
		return
	}
	if _, err := s.ChannelMessageSend(m.ChannelID, resp.Text); err != nil {
		slog.Warn("commands: failed to send reply", "channel_id", m.ChannelID, "err", err)
	}
}

func subcommandOptions(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	out := make(map[string]*discordgo.ApplicationCommandInteractionDataOption)
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return out
	}
	for _, o := range data.Options[0].Options {
		out[o.Name] = o
	}
	return out
}

func boolOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) bool {
	o, ok := opts[name]
	return ok && o.BoolValue()
}

func stringOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if o, ok := opts[name]; ok {
		return o.StringValue()
	}
	return ""
}
