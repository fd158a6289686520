package bot

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/grabbot/grabbot/internal/metrics"
	"github.com/grabbot/grabbot/internal/tracing"
	"github.com/grabbot/grabbot/pkg/models"
)

const resolveTimeout = 2 * time.Minute

func (b *Bot) handleCommand(message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		msg := tgbotapi.NewMessage(message.Chat.ID,
			"Hi!\n"+
				"I download videos for you. "+
				"Subscribe to the channel and send me a video link.")
		if b.cfg.SubscriptionChannel != "" {
			msg.ReplyMarkup = b.subscribeKeyboard()
		}
		if _, err := b.api.Send(msg); err != nil {
			b.log.WithUserID(message.From.ID).WithError(err).Error("Failed to send welcome")
		}
	case "help":
		b.sendText(message.Chat.ID,
			"Send me a video link and pick a format:\n"+
				"🎥 Video (MP4)\n"+
				"🔊 Audio\n\n"+
				"Playlists and live streams are not supported.")
	}
}

func (b *Bot) handleLink(ctx context.Context, message *tgbotapi.Message) {
	user := message.From
	url := strings.TrimSpace(message.Text)

	metrics.LinksReceivedTotal.Inc()
	b.log.LogChatEvent(user.ID, "link_received", url)

	if !b.isAuthorized(user.ID) {
		b.recordMembershipDenied(user.ID)
		msg := tgbotapi.NewMessage(message.Chat.ID, "❌ Please subscribe to the channel to use this bot.")
		if b.cfg.SubscriptionChannel != "" {
			msg.ReplyMarkup = b.subscribeKeyboard()
		}
		if _, err := b.api.Send(msg); err != nil {
			b.log.WithUserID(user.ID).WithError(err).Error("Failed to send join prompt")
		}
		return
	}

	// Playlists and streams are rejected before any work happens.
	if strings.Contains(url, "list=") || strings.Contains(url, "/live") {
		b.sendText(message.Chat.ID, "⚠️ Playlists and live streams are not supported.")
		return
	}

	statusMsg, err := b.api.Send(tgbotapi.NewMessage(message.Chat.ID, "🔍 Fetching video info..."))
	if err != nil {
		b.log.WithUserID(user.ID).WithError(err).Error("Failed to send status message")
		return
	}

	resolveCtx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	span, resolveCtx := tracing.StartSpan(resolveCtx, "media.resolve")
	info, err := b.resolver.Resolve(resolveCtx, url)
	if err != nil {
		tracing.LogError(span, err)
	}
	tracing.FinishSpan(span)
	if err != nil {
		metrics.ResolutionsTotal.WithLabelValues("error").Inc()
		b.log.WithUserID(user.ID).WithError(err).Error("Metadata resolution failed")
		b.editText(message.Chat.ID, statusMsg.MessageID, "❌ Couldn't read video info. Check the link.")
		return
	}
	metrics.ResolutionsTotal.WithLabelValues("ok").Inc()

	if info.IsLive {
		b.editText(message.Chat.ID, statusMsg.MessageID, "⚠️ Live streams are not supported.")
		return
	}

	if time.Duration(info.Duration)*time.Second > b.download.MaxDuration {
		b.editText(message.Chat.ID, statusMsg.MessageID,
			fmt.Sprintf("⚠️ Videos longer than %s are not supported.", FormatDuration(int(b.download.MaxDuration.Seconds()))))
		return
	}

	// The session is created before format presentation; a failed attempt
	// below consumes it again so nothing lingers.
	if err := b.sessions.Put(ctx, user.ID, url); err != nil {
		b.log.WithUserID(user.ID).WithError(err).Error("Failed to store session")
		b.editText(message.Chat.ID, statusMsg.MessageID, "⚠️ An unexpected error occurred. Try again later.")
		return
	}
	metrics.SessionsCreatedTotal.Inc()

	video := b.catalog.BestVideo(info)
	audio := b.catalog.BestAudio(info)

	if video == nil && audio == nil {
		b.sessions.Take(ctx, user.ID)
		b.editText(message.Chat.ID, statusMsg.MessageID, "❌ No downloadable formats found within the size limit.")
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	if video != nil {
		label := fmt.Sprintf("🎥 Video (%s) - %s", orUnknown(video.Resolution), FormatSize(video.FileSize))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "video:"+video.FormatID),
		))
	}
	if audio != nil {
		label := fmt.Sprintf("🔊 Audio (%.0fkbps) - %s", audio.Bitrate, FormatSize(audio.FileSize))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "audio:"+audio.FormatID),
		))
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)

	caption := buildCaption(info)

	// Replace the transient status message with the offer.
	del := tgbotapi.NewDeleteMessage(message.Chat.ID, statusMsg.MessageID)
	if _, err := b.api.Request(del); err != nil {
		b.log.WithUserID(user.ID).WithError(err).Warn("Failed to delete status message")
	}

	if info.Thumbnail != "" {
		photo := tgbotapi.NewPhoto(message.Chat.ID, tgbotapi.FileURL(info.Thumbnail))
		photo.Caption = caption
		photo.ParseMode = tgbotapi.ModeHTML
		photo.ReplyMarkup = keyboard
		if _, err := b.api.Send(photo); err == nil {
			return
		}
		b.log.WithUserID(user.ID).Warn("Failed to send thumbnail, falling back to text")
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, caption)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = keyboard
	if _, err := b.api.Send(msg); err != nil {
		b.log.WithUserID(user.ID).WithError(err).Error("Failed to send format offer")
	}
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	user := cq.From

	kind, formatID, ok := parseSelection(cq.Data)
	if !ok {
		return
	}

	if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		b.log.WithUserID(user.ID).WithError(err).Warn("Failed to answer callback")
	}

	url, found, err := b.sessions.Take(ctx, user.ID)
	if err != nil {
		b.log.WithUserID(user.ID).WithError(err).Error("Failed to take session")
		b.sendText(user.ID, "⚠️ An unexpected error occurred. Try again later.")
		return
	}
	if !found {
		b.sendText(user.ID, "❌ Session expired, send the link again.")
		return
	}

	statusMsg, err := b.api.Send(tgbotapi.NewMessage(user.ID, "⏳ Starting download..."))
	if err != nil {
		b.log.WithUserID(user.ID).WithError(err).Error("Failed to send status message")
		return
	}

	job := models.NewDownloadJob(user.ID, url, formatID, kind)
	b.log.LogJobEvent(job.ID, "admitted", map[string]interface{}{
		"user_id":   user.ID,
		"format_id": formatID,
		"kind":      string(kind),
	})

	// The orchestrator owns the job from here; the update loop moves on.
	go func() {
		outcome := b.orch.Run(ctx, job)
		b.editText(user.ID, statusMsg.MessageID, outcomeText(outcome))
	}()
}

// parseSelection splits callback data of the form "video:<formatID>".
func parseSelection(data string) (models.MediaKind, string, bool) {
	kindStr, formatID, ok := strings.Cut(data, ":")
	if !ok || formatID == "" {
		return "", "", false
	}
	switch kindStr {
	case "video":
		return models.KindVideo, formatID, true
	case "audio":
		return models.KindAudio, formatID, true
	default:
		return "", "", false
	}
}

// outcomeText maps a terminal job outcome to the single user-facing
// message for it.
func outcomeText(outcome models.JobOutcome) string {
	if outcome.Success {
		return "✅ File sent successfully."
	}
	switch outcome.ErrorKind {
	case models.ErrKindTimeout:
		return "⌛ Download timed out."
	case models.ErrKindTooLarge:
		return "❌ The file is too large to send."
	case models.ErrKindDelivery:
		return "❌ Failed to upload the file to the chat."
	case models.ErrKindArtifactMissing:
		return "⚠️ Something went wrong while processing the file."
	default:
		return "⚠️ An unexpected error occurred. Try again later."
	}
}

func buildCaption(info *models.MediaInfo) string {
	title := truncateRunes(info.Title, 255)
	channel := info.Uploader
	if channel == "" {
		channel = "Unknown"
	}
	channel = truncateRunes(channel, 100)

	return fmt.Sprintf(
		"<b>%s</b>\n\n"+
			"👁 Views: %s\n"+
			"📅 Uploaded: %s\n"+
			"👤 Channel: %s\n"+
			"⏱ Duration: %s",
		html.EscapeString(title),
		FormatCount(info.ViewCount),
		FormatUploadDate(info.UploadDate),
		html.EscapeString(channel),
		FormatDuration(info.Duration),
	)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
