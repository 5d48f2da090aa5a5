package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nicebartender/chatbridge/chat"
	"github.com/nicebartender/chatbridge/commands"
	"github.com/nicebartender/chatbridge/events"
	"github.com/nicebartender/chatbridge/outbound"
)

// Store is the persistence surface the bot needs. *db.Store satisfies it.
type Store interface {
	LogMessage(id, channel, userID, displayName, text string, whisper bool) error
	GetCommand(name string) (string, bool, error)
	UpsertCommand(name, response, createdBy string) error
	DeleteCommand(name string) error
	ListCommands() ([]string, error)
}

// Bot ties one chat session together: inbound messages go through the
// command registry (then the custom-command store), and every reply leaves
// through the governed dispatcher. One Bot per connection; nothing survives
// teardown.
type Bot struct {
	prefix    string
	selfID    string
	gov       *outbound.Governor
	disp      *outbound.Dispatcher
	reg       *commands.Registry
	store     Store
	startedAt time.Time
}

func New(gov *outbound.Governor, disp *outbound.Dispatcher, reg *commands.Registry, store Store, prefix, selfID string) *Bot {
	b := &Bot{
		prefix:    prefix,
		selfID:    selfID,
		gov:       gov,
		disp:      disp,
		reg:       reg,
		store:     store,
		startedAt: time.Now(),
	}
	b.registerBuiltins()
	return b
}

// HandleMessage processes one inbound chat line. Safe to call from its own
// goroutine per message; replies may block on the rate governor.
func (b *Bot) HandleMessage(ctx context.Context, msg chat.Message) {
	if err := b.store.LogMessage(uuid.NewString(), msg.Channel, msg.UserID, msg.DisplayName, msg.Text, msg.Whisper); err != nil {
		slog.Warn("bot: log message failed", "err", err)
	}
	slog.Debug("chat line", "channel", msg.Channel, "from", msg.Badges.DisplayTag()+msg.DisplayName, "whisper", msg.Whisper)

	if msg.UserID == b.selfID {
		// Our own badge state in the channel is the tier signal: the new
		// ceiling is realized at the governor's next refill.
		b.gov.SetElevated(msg.Badges.Elevated())
		return
	}

	if !strings.HasPrefix(msg.Text, b.prefix) {
		return
	}
	fields := strings.Fields(strings.TrimPrefix(msg.Text, b.prefix))
	if len(fields) == 0 {
		return
	}

	inv := commands.Invocation{
		Command:     strings.ToLower(fields[0]),
		Args:        fields[1:],
		Channel:     msg.Channel,
		UserID:      msg.UserID,
		DisplayName: msg.DisplayName,
		Badges:      msg.Badges,
		Whisper:     msg.Whisper,
	}

	reply, err := b.resolve(ctx, inv)
	if err != nil {
		slog.Error("bot: command failed", "command", inv.Command, "err", err)
		return
	}
	if reply == "" {
		return
	}
	b.reply(ctx, msg, reply)
}

// resolve finds a reply for the invocation: registered handlers first, then
// the custom-command store. Unknown commands stay silent.
func (b *Bot) resolve(ctx context.Context, inv commands.Invocation) (string, error) {
	if h, ok := b.reg.Lookup(inv.Command); ok {
		return h(ctx, inv)
	}
	response, ok, err := b.store.GetCommand(inv.Command)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return response, nil
}

func (b *Bot) reply(ctx context.Context, msg chat.Message, text string) {
	var err error
	if msg.Whisper {
		err = b.disp.Whisper(ctx, msg.UserID, text)
	} else {
		err = b.disp.Say(ctx, msg.Channel, text)
	}
	if err != nil {
		slog.Error("bot: reply failed", "channel", msg.Channel, "whisper", msg.Whisper, "err", err)
	}
}

// HandleRedemption announces a verified webhook event in its channel, under
// the same governed send path as chat replies.
func (b *Bot) HandleRedemption(ctx context.Context, n events.Notification) {
	if n.Channel == "" || n.Reward == "" {
		return
	}
	text := fmt.Sprintf("%s redeemed %s", n.UserName, n.Reward)
	if err := b.disp.Say(ctx, n.Channel, text); err != nil {
		slog.Error("bot: redemption announce failed", "channel", n.Channel, "err", err)
	}
}

func (b *Bot) registerBuiltins() {
	b.reg.Register("commands", b.cmdCommands)
	b.reg.Register("addcmd", b.cmdAddCommand)
	b.reg.Register("delcmd", b.cmdDelCommand)
	b.reg.Register("uptime", func(ctx context.Context, inv commands.Invocation) (string, error) {
		return "up " + time.Since(b.startedAt).Round(time.Second).String(), nil
	})
}

func (b *Bot) cmdCommands(ctx context.Context, inv commands.Invocation) (string, error) {
	custom, err := b.store.ListCommands()
	if err != nil {
		return "", err
	}
	names := append(b.reg.Names(), custom...)
	sort.Strings(names)

	var out []string
	for i, name := range names {
		if i > 0 && name == names[i-1] {
			continue
		}
		out = append(out, b.prefix+name)
	}
	return "Commands: " + strings.Join(out, ", "), nil
}

func (b *Bot) cmdAddCommand(ctx context.Context, inv commands.Invocation) (string, error) {
	if !inv.Badges.Elevated() {
		return "", nil
	}
	if len(inv.Args) < 2 {
		return fmt.Sprintf("usage: %saddcmd <name> <response>", b.prefix), nil
	}
	name := strings.ToLower(inv.Args[0])
	if _, ok := b.reg.Lookup(name); ok {
		return fmt.Sprintf("%s%s is built in", b.prefix, name), nil
	}
	if err := b.store.UpsertCommand(name, strings.Join(inv.Args[1:], " "), inv.UserID); err != nil {
		return "", err
	}
	return fmt.Sprintf("Added %s%s", b.prefix, name), nil
}

func (b *Bot) cmdDelCommand(ctx context.Context, inv commands.Invocation) (string, error) {
	if !inv.Badges.Elevated() {
		return "", nil
	}
	if len(inv.Args) != 1 {
		return fmt.Sprintf("usage: %sdelcmd <name>", b.prefix), nil
	}
	name := strings.ToLower(inv.Args[0])
	if err := b.store.DeleteCommand(name); err != nil {
		return "", err
	}
	return fmt.Sprintf("Removed %s%s", b.prefix, name), nil
}
