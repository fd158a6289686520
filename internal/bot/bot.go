package bot

import (
	"context"
	"fmt"
	"regexp"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/grabbot/grabbot/internal/config"
	"github.com/grabbot/grabbot/internal/format"
	"github.com/grabbot/grabbot/internal/logging"
	"github.com/grabbot/grabbot/internal/metrics"
	"github.com/grabbot/grabbot/internal/orchestrator"
	"github.com/grabbot/grabbot/internal/session"
	"github.com/grabbot/grabbot/pkg/models"
)

var mediaURLPattern = regexp.MustCompile(`^https?://(?:www\.)?(?:youtube\.com|youtu\.be)/.+`)

// Resolver fetches metadata for a submitted link without downloading.
type Resolver interface {
	Resolve(ctx context.Context, url string) (*models.MediaInfo, error)
}

// chatAPI is the slice of the Telegram client the bot uses. *tgbotapi.BotAPI
// satisfies it; tests substitute a recording fake.
type chatAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatMember(cfg tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
	GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot is the Telegram front end: it routes commands, gates users on channel
// membership, walks them from link submission through format selection, and
// hands selections to the orchestrator.
type Bot struct {
	api      chatAPI
	cfg      config.TelegramConfig
	download config.DownloadConfig
	catalog  *format.Catalog
	sessions session.Store
	resolver Resolver
	orch     *orchestrator.Orchestrator
	log      *logging.Logger
}

// New creates the bot and authenticates against the Telegram API. The
// orchestrator is wired in afterwards via SetOrchestrator.
func New(
	token string,
	cfg config.TelegramConfig,
	download config.DownloadConfig,
	catalog *format.Catalog,
	sessions session.Store,
	resolver Resolver,
	log *logging.Logger,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	log.Infof("Authorized on account %s (@%s)", api.Self.FirstName, api.Self.UserName)

	return &Bot{
		api:      api,
		cfg:      cfg,
		download: download,
		catalog:  catalog,
		sessions: sessions,
		resolver: resolver,
		log:      log,
	}, nil
}

// SetOrchestrator wires the download orchestrator in after construction.
// The bot doubles as the orchestrator's delivery channel, so the two
// cannot be built in a single pass.
func (b *Bot) SetOrchestrator(orch *orchestrator.Orchestrator) {
	b.orch = orch
}

// Start runs the update loop until the context is cancelled.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	b.log.Info("Bot is listening for updates")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.log.Info("Bot stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.dispatch(ctx, update)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(update.Message)
	case update.Message != nil && mediaURLPattern.MatchString(update.Message.Text):
		b.handleLink(ctx, update.Message)
	}
}

// isAuthorized checks membership in the configured chat. A zero chat ID
// disables the gate. API errors deny access, matching the reference
// behavior of failing closed.
func (b *Bot) isAuthorized(userID int64) bool {
	if b.cfg.MemberChatID == 0 {
		return true
	}

	member, err := b.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: b.cfg.MemberChatID,
			UserID: userID,
		},
	})
	if err != nil {
		b.log.WithUserID(userID).WithError(err).Error("Membership check failed")
		return false
	}

	switch member.Status {
	case "creator", "administrator", "member":
		return true
	default:
		return false
	}
}

// sendText sends a plain message to the user's chat.
func (b *Bot) sendText(userID int64, text string) {
	msg := tgbotapi.NewMessage(userID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.WithUserID(userID).WithError(err).Error("Failed to send message")
	}
}

// SendFile implements orchestrator.Notifier: it uploads the artifact to the
// user's chat as the requested media kind.
func (b *Bot) SendFile(_ context.Context, userID int64, path string, kind models.MediaKind) error {
	var msg tgbotapi.Chattable
	if kind == models.KindVideo {
		msg = tgbotapi.NewVideo(userID, tgbotapi.FilePath(path))
	} else {
		msg = tgbotapi.NewAudio(userID, tgbotapi.FilePath(path))
	}

	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to upload %s: %w", kind, err)
	}
	return nil
}

func (b *Bot) subscribeKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("👀 Subscribe", b.cfg.SubscriptionChannel),
		),
	)
}

func (b *Bot) editText(userID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(userID, messageID, text)
	if _, err := b.api.Send(edit); err != nil {
		b.log.WithUserID(userID).WithError(err).Error("Failed to edit message")
	}
}

func (b *Bot) recordMembershipDenied(userID int64) {
	metrics.MembershipDeniedTotal.Inc()
	b.log.LogChatEvent(userID, "membership_denied", "")
}
