// Package console plays the chain game on a terminal. Every line is a
// word; lines starting with "/" are commands.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/MrWong99/jielong/internal/chain"
	"github.com/MrWong99/jielong/internal/normalize"
)

// Channel is the channel identifier used for console sessions.
const Channel = "console"

const help = `命令：
  /start [reverse] [strict] [arcade] [pk]  开始接龙
  /stop                                     停止接龙
  /hint                                     查看提示
  /status                                   查看状态
  /warning on|off                           开关错误提醒
  /user <名字>                              切换玩家
  /quit                                     退出
其他输入都会作为接龙的词。`

// Console reads commands from an input stream and writes engine replies to
// an output stream.
type Console struct {
	engine *chain.Engine
	norm   *normalize.Normalizer

	mu   sync.Mutex
	out  io.Writer
	user string
}

// New creates a Console. The initial player is "player".
func New(engine *chain.Engine, norm *normalize.Normalizer, out io.Writer) *Console {
	return &Console{engine: engine, norm: norm, out: out, user: "player"}
}

// Notify implements [chain.Notifier] so expiry announcements reach the
// terminal.
func (c *Console) Notify(_ context.Context, _, text string) {
	c.println(text)
}

func (c *Console) println(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, text)
}

// Run processes lines from in until EOF, /quit or ctx cancellation.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	c.println(help)
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				if err := <-errc; err != nil {
					return fmt.Errorf("console: read input: %w", err)
				}
				return nil
			}
			if quit := c.Handle(ctx, line); quit {
				return nil
			}
		}
	}
}

// Handle processes one input line and reports whether the console should
// exit.
func (c *Console) Handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	req := chain.Request{Channel: Channel, UserID: c.player(), Authority: 3}

	if !strings.HasPrefix(line, "/") {
		req.Word = c.norm.Normalize(line)
		if req.Word == "" {
			return false
		}
		c.reply(c.engine.Submit(ctx, req))
		return false
	}

	fields := strings.Fields(line[1:])
	if len(fields) == 0 {
		c.println(help)
		return false
	}
	switch cmd, args := fields[0], fields[1:]; cmd {
	case "start":
		c.reply(c.engine.Start(ctx, req, chain.StartOptions{Mode: parseMode(args)}))
	case "stop":
		c.reply(c.engine.Stop(ctx, req))
	case "hint":
		c.reply(c.engine.Hint(ctx, req))
	case "status":
		c.reply(c.engine.Status(ctx, Channel))
	case "warning":
		c.reply(c.engine.SetWarning(ctx, Channel, len(args) == 0 || args[0] != "off"))
	case "user":
		if len(args) == 0 {
			c.println("当前玩家：" + c.player())
			break
		}
		c.mu.Lock()
		c.user = args[0]
		c.mu.Unlock()
		c.println("已切换到玩家 " + args[0])
	case "quit", "exit":
		return true
	default:
		c.println(help)
	}
	return false
}

func (c *Console) player() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

func (c *Console) reply(resp chain.Response, err error) {
	switch {
	case errors.Is(err, chain.ErrNoSession):
		c.println("当前没有进行中的接龙，输入 /start 开始。")
		return
	case errors.Is(err, chain.ErrSessionActive):
		c.println("已有进行中的接龙。")
		return
	case err != nil && !chain.IsRejection(err, ""):
		slog.Error("console: request failed", "err", err)
	}
	if resp.Text != "" {
		c.println(resp.Text)
	}
}

func parseMode(args []string) chain.Mode {
	var m chain.Mode
	for _, a := range args {
		switch strings.ToLower(a) {
		case "reverse", "反向":
			m.Reverse = true
		case "strict", "严格":
			m.Strict = true
		case "arcade", "街机":
			m.Arcade = true
		case "pk", "对战":
			m.PK = true
		}
	}
	return m
}
