package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aleister1102/slotwatch/internal/datastore"
	"github.com/aleister1102/slotwatch/internal/fetcher"
	"github.com/aleister1102/slotwatch/internal/models"
	"github.com/aleister1102/slotwatch/internal/notifier"
	"github.com/mymmrac/telego"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	addExample = "/add https://needle.co.il/candidate-slots/1d22a516-a3a5-4f9a-a2c2-896eddea945e"

	// Each chat gets a burst of commandBurst, refilled one every commandRefill.
	commandBurst  = 10
	commandRefill = 6 * time.Second

	// Commands waiting for a chat's worker beyond this are dropped.
	chatQueueSize = 32
)

// Tracker is the registration side the commands drive.
type Tracker interface {
	Track(ctx context.Context, ownerID int64, url string) (*models.TrackedResource, []models.Slot, error)
	Untrack(ctx context.Context, ownerID int64, url string) (bool, error)
	List(ctx context.Context, ownerID int64) ([]models.TrackedResource, error)
}

// Replier sends a text reply to a chat.
type Replier interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// UpdateSource is the part of *telego.Bot that yields incoming updates.
type UpdateSource interface {
	UpdatesViaLongPolling(ctx context.Context, params *telego.GetUpdatesParams, options ...telego.LongPollingOption) (<-chan telego.Update, error)
}

// CommandBot answers the chat commands /start, /help, /add, /list and /remove.
type CommandBot struct {
	tracker   Tracker
	replier   Replier
	formatter *notifier.Formatter
	logger    zerolog.Logger

	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
}

// NewCommandBot creates a bot replying through replier.
func NewCommandBot(tracker Tracker, replier Replier, formatter *notifier.Formatter, logger zerolog.Logger) *CommandBot {
	return &CommandBot{
		tracker:   tracker,
		replier:   replier,
		formatter: formatter,
		logger:    logger.With().Str("module", "CommandBot").Logger(),
		limiters:  make(map[int64]*rate.Limiter),
	}
}

// Run long-polls updates from source and handles them until ctx is done or
// the update channel closes. Each chat gets its own worker, so a slow /add in
// one chat does not hold up the others while commands within a chat are still
// answered in order. Run returns once every worker has finished.
func (b *CommandBot) Run(ctx context.Context, source UpdateSource) error {
	updates, err := source.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start long polling: %w", err)
	}

	var wg sync.WaitGroup
	queues := make(map[int64]chan telego.Update)
	defer func() {
		for _, q := range queues {
			close(q)
		}
		wg.Wait()
	}()

	b.logger.Info().Msg("Telegram command bot started")
	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Telegram command bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			msg := update.Message
			if msg == nil || !strings.HasPrefix(msg.Text, "/") {
				continue
			}

			q, ok := queues[msg.Chat.ID]
			if !ok {
				q = make(chan telego.Update, chatQueueSize)
				queues[msg.Chat.ID] = q
				wg.Add(1)
				go b.serveChat(ctx, q, &wg)
			}
			select {
			case q <- update:
			default:
				b.logger.Warn().Int64("owner_id", msg.Chat.ID).Msg("Command queue full, dropping update")
			}
		}
	}
}

func (b *CommandBot) serveChat(ctx context.Context, queue <-chan telego.Update, wg *sync.WaitGroup) {
	defer wg.Done()
	for update := range queue {
		if ctx.Err() != nil {
			continue
		}
		b.handleUpdate(ctx, update)
	}
}

func (b *CommandBot) handleUpdate(ctx context.Context, update telego.Update) {
	msg := update.Message
	if msg == nil || !strings.HasPrefix(msg.Text, "/") {
		return
	}
	chatID := msg.Chat.ID

	if !b.allow(chatID) {
		b.logger.Warn().Int64("owner_id", chatID).Msg("Rate limit exceeded for command")
		b.reply(ctx, chatID, "Rate limit exceeded. Please wait before sending another command.")
		return
	}

	if command, _ := splitCommand(msg.Text); command == "/add" {
		b.reply(ctx, chatID, "Fetching interview page...")
	}
	if text := b.Handle(ctx, chatID, msg.Text); text != "" {
		b.reply(ctx, chatID, text)
	}
}

func (b *CommandBot) reply(ctx context.Context, chatID int64, text string) {
	if err := b.replier.Send(ctx, chatID, text); err != nil {
		b.logger.Error().Err(err).Int64("owner_id", chatID).Msg("Failed to send reply")
	}
}

func (b *CommandBot) allow(chatID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.limiters[chatID]
	if !ok {
		l = rate.NewLimiter(rate.Every(commandRefill), commandBurst)
		b.limiters[chatID] = l
	}
	return l.Allow()
}

// Handle executes one command for ownerID and returns the reply text. Text
// that is not a command yields "".
func (b *CommandBot) Handle(ctx context.Context, ownerID int64, text string) string {
	command, args := splitCommand(text)
	switch command {
	case "":
		return ""
	case "/start", "/help":
		return b.formatter.Welcome()
	case "/add":
		return b.handleAdd(ctx, ownerID, args)
	case "/list":
		return b.handleList(ctx, ownerID)
	case "/remove":
		return b.handleRemove(ctx, ownerID, args)
	default:
		return "Unknown command. Use /help to see available commands."
	}
}

func (b *CommandBot) handleAdd(ctx context.Context, ownerID int64, args []string) string {
	if len(args) == 0 {
		return b.formatter.Error("Please provide a URL.\n\nUsage: /add <url>\n\nExample:\n" + addExample)
	}
	url := args[0]

	resource, slots, err := b.tracker.Track(ctx, ownerID, url)
	if err != nil {
		var srcErr *fetcher.SourceError
		switch {
		case errors.Is(err, datastore.ErrAlreadyTracked):
			return b.formatter.Error("You're already tracking this URL!")
		case errors.As(err, &srcErr):
			b.logger.Warn().Err(err).Int64("owner_id", ownerID).Str("url", url).Msg("Could not read page for /add")
			return b.formatter.Error(srcErr.Message)
		default:
			b.logger.Error().Err(err).Int64("owner_id", ownerID).Str("url", url).Msg("Command execution failed")
			return b.formatter.Error("An unexpected error occurred: " + err.Error())
		}
	}

	b.logger.Info().Int64("owner_id", ownerID).Str("url", url).Str("label", resource.Label).Msg("Owner added URL")
	return b.formatter.SlotSummary(resource.Label, resource.URL, slots)
}

func (b *CommandBot) handleList(ctx context.Context, ownerID int64) string {
	resources, err := b.tracker.List(ctx, ownerID)
	if err != nil {
		b.logger.Error().Err(err).Int64("owner_id", ownerID).Msg("Command execution failed")
		return b.formatter.Error("Failed to retrieve tracked URLs: " + err.Error())
	}
	return b.formatter.TrackedList(resources)
}

func (b *CommandBot) handleRemove(ctx context.Context, ownerID int64, args []string) string {
	if len(args) == 0 {
		return b.formatter.Error("Please provide a URL to remove.\n\nUsage: /remove <url>")
	}
	url := args[0]

	removed, err := b.tracker.Untrack(ctx, ownerID, url)
	if err != nil {
		b.logger.Error().Err(err).Int64("owner_id", ownerID).Str("url", url).Msg("Command execution failed")
		return b.formatter.Error("Failed to remove URL: " + err.Error())
	}
	if !removed {
		return b.formatter.Error("URL not found in your tracked list.")
	}
	return b.formatter.Removed(url)
}

// splitCommand returns the lower-cased command without any @botname suffix
// and its whitespace separated arguments.
func splitCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil
	}
	command := strings.ToLower(fields[0])
	if at := strings.IndexByte(command, '@'); at > 0 {
		command = command[:at]
	}
	return command, fields[1:]
}
