package chain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// User-facing texts.
const (
	msgStart          = "接龙开始，第一个词是"
	msgStartPK        = "接龙对战开始，第一个词是"
	msgAccepted       = "接龙成功！当前词汇为"
	msgRestartPK      = "接龙对战重新开始，第一个词是"
	msgStopped        = "接龙已停止。"
	msgNoPermission   = "不是接龙发起者且权限不足。"
	msgEliminated     = "你已出局，无法继续接龙。"
	msgConsecutive    = "对战模式中，同一个人不能连续接龙。"
	msgAlreadyUsed    = "这个词已经用过了，请换一个吧。"
	msgDeadEnd        = "由于接龙无法继续，接龙自动停止。"
	msgNoWinner       = "没有人获得胜利。"
	msgArcadeFailed   = "街机接龙已失败。"
	msgSeedFailure    = "由于未知错误，接龙将自行停止。"
	msgHintPK         = "接龙对战中不能查看提示。"
	msgHintArcade     = "街机接龙中不能查看提示。"
	msgWarningsOn     = "已开启错误提醒模式。"
	msgWarningsOff    = "已关闭错误提醒模式。"
	msgNoPlayers      = "当前处于接龙对战中，且没有玩家入局。"
	defaultVocabulary = "东方词汇"
)

func msgNotFound(word string) string {
	return "在词库中没有找到“" + word + "”。"
}

func msgSuggest(display string) string {
	return "你是不是想找“" + display + "”？"
}

func msgEliminatedPlayer(who string) string {
	return "由于接龙无法继续，玩家 " + who + " 被判出局。"
}

func msgWinner(who string) string {
	return "恭喜 " + who + " 在对战中获胜！"
}

func msgStarved(who string) string {
	return "由于长时间未接龙，" + who + " 已自动退出，可再次加入。"
}

func msgPlayers(list string) string {
	return "当前处于接龙对战中，未出局的玩家为：" + list + "。"
}

func msgHint(display, category string) string {
	return "提示：" + display + "（" + category + "）"
}

func msgTimeout(limit time.Duration) string {
	return "由于 " + formatSpan(limit) + "内无人成功应答，接龙已停止。"
}

func msgTimeoutPK(limit time.Duration, winner string) string {
	if winner == "" {
		return "由于 " + formatSpan(limit) + "内无人成功应答，对战接龙已停止。" + msgNoWinner
	}
	return "由于 " + formatSpan(limit) + "内无人成功应答，" + msgWinner(winner)
}

// formatSpan renders d as whole minutes when possible, else whole seconds.
func formatSpan(d time.Duration) string {
	if d >= time.Minute && d%time.Minute == 0 {
		return fmt.Sprintf("%d 分钟", int(d/time.Minute))
	}
	return fmt.Sprintf("%d 秒", int(math.Round(d.Seconds())))
}

// formatWord renders word with the session's mode prefixes, turn ordinal and
// the next-turn prompt where one is useful.
func (e *Engine) formatWord(s *session, word, lead string, now time.Time) string {
	entry, _ := e.vocab.Entry(word)

	var b strings.Builder
	if s.index > 0 {
		fmt.Fprintf(&b, "第 %d 次", s.index)
	}
	b.WriteString(s.mode.prefix())
	b.WriteString(lead)
	b.WriteString("“" + entry.Display + "”（" + entry.Category + "）")
	if len(s.next) == 0 {
		return b.String()
	}

	remaining := ""
	if s.mode.Arcade {
		remaining = fmt.Sprintf("剩余时间：%d 秒。", int(math.Round(s.deadline.Sub(now).Seconds())))
	}
	switch {
	case s.restriction != "" || len(s.tones) > 1:
		prompt := e.formatNext(s)
		if remaining != "" {
			prompt = strings.TrimSuffix(prompt, "。") + "，" + remaining
		}
		b.WriteString("\n接下来" + prompt)
	case remaining != "":
		b.WriteString("\n" + remaining)
	}
	return b.String()
}

// formatNext describes what the next word must look like.
func (e *Engine) formatNext(s *session) string {
	side := "首"
	if s.mode.Reverse {
		side = "尾"
	}
	return "请输入" + s.restriction + side + "字读音为 " + strings.Join(s.tones, ", ") + " 的" + defaultVocabulary + "。"
}
