package discord

import (
	"context"
	"log/slog"
)

// Notifier posts engine announcements, such as timeouts, to the channel
// they concern.
type Notifier struct {
	sender Sender
}

// NewNotifier returns a Notifier posting through s.
func NewNotifier(s Sender) *Notifier {
	return &Notifier{sender: s}
}

// Notify sends text to channel. Failures are logged.
func (n *Notifier) Notify(_ context.Context, channel, text string) {
	if _, err := n.sender.ChannelMessageSend(channel, text); err != nil {
		slog.Warn("discord: failed to send notification", "channel_id", channel, "err", err)
	}
}
