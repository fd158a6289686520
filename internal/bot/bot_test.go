package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grabbot/grabbot/internal/config"
	"github.com/grabbot/grabbot/internal/format"
	"github.com/grabbot/grabbot/internal/logging"
	"github.com/grabbot/grabbot/internal/session"
	"github.com/grabbot/grabbot/pkg/models"
)

type fakeChatAPI struct {
	mu     sync.Mutex
	sent   []tgbotapi.Chattable
	nextID int
}

func (f *fakeChatAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeChatAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeChatAPI) GetChatMember(tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	return tgbotapi.ChatMember{Status: "member"}, nil
}

func (f *fakeChatAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return nil
}

func (f *fakeChatAPI) StopReceivingUpdates() {}

func (f *fakeChatAPI) edits() []tgbotapi.EditMessageTextConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.EditMessageTextConfig
	for _, c := range f.sent {
		if edit, ok := c.(tgbotapi.EditMessageTextConfig); ok {
			out = append(out, edit)
		}
	}
	return out
}

func (f *fakeChatAPI) offeredKeyboard() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			if _, ok := m.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup); ok {
				return true
			}
		case tgbotapi.PhotoConfig:
			if _, ok := m.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup); ok {
				return true
			}
		}
	}
	return false
}

type fakeResolver struct {
	info *models.MediaInfo
	err  error
}

func (r *fakeResolver) Resolve(context.Context, string) (*models.MediaInfo, error) {
	return r.info, r.err
}

func newTestBot(t *testing.T, api *fakeChatAPI, resolver Resolver, store session.Store) *Bot {
	t.Helper()
	log, err := logging.NewDefaultLogger()
	require.NoError(t, err)

	download := config.DownloadConfig{
		SizeCeiling: 10 * 1024 * 1024,
		MaxDuration: 2 * time.Hour,
	}

	return &Bot{
		api:      api,
		cfg:      config.TelegramConfig{},
		download: download,
		catalog:  format.NewCatalog(download.SizeCeiling),
		sessions: store,
		resolver: resolver,
		log:      log,
	}
}

func linkMessage(userID int64, url string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID},
		Chat:      &tgbotapi.Chat{ID: userID},
		Text:      url,
	}
}

func TestHandleLink_LiveStreamNeverOffered(t *testing.T) {
	api := &fakeChatAPI{}
	store := session.NewMemoryStore()
	resolver := &fakeResolver{info: &models.MediaInfo{
		ID:     "live1",
		Title:  "Live broadcast",
		IsLive: true,
		Formats: []models.FormatCandidate{
			{FormatID: "22", FileSize: 1 << 20, HasVideo: true, HasAudio: true, Quality: 720},
		},
	}}

	b := newTestBot(t, api, resolver, store)
	b.handleLink(context.Background(), linkMessage(7, "https://www.youtube.com/watch?v=live1"))

	assert.False(t, api.offeredKeyboard(), "live streams must never reach format selection")
	assert.Equal(t, 0, store.Len(), "no session may be created for a live stream")

	edits := api.edits()
	require.NotEmpty(t, edits)
	assert.Contains(t, edits[len(edits)-1].Text, "Live streams")
}

func TestHandleLink_AllCandidatesOversize(t *testing.T) {
	api := &fakeChatAPI{}
	store := session.NewMemoryStore()
	resolver := &fakeResolver{info: &models.MediaInfo{
		ID:    "big1",
		Title: "Huge video",
		Formats: []models.FormatCandidate{
			{FormatID: "22", FileSize: 100 << 20, HasVideo: true, HasAudio: true, Quality: 720},
			{FormatID: "140", FileSize: 100 << 20, HasVideo: false, HasAudio: true, Bitrate: 128},
		},
	}}

	b := newTestBot(t, api, resolver, store)
	b.handleLink(context.Background(), linkMessage(7, "https://www.youtube.com/watch?v=big1"))

	assert.False(t, api.offeredKeyboard(), "oversize-only candidates must not be offered")
	assert.Equal(t, 0, store.Len(), "the session record must be cleared when nothing is eligible")

	edits := api.edits()
	require.NotEmpty(t, edits)
	assert.Contains(t, edits[len(edits)-1].Text, "No downloadable formats")
}

func TestHandleLink_EligibleFormatsOffered(t *testing.T) {
	api := &fakeChatAPI{}
	store := session.NewMemoryStore()
	resolver := &fakeResolver{info: &models.MediaInfo{
		ID:    "ok1",
		Title: "Fine video",
		Formats: []models.FormatCandidate{
			{FormatID: "22", FileSize: 1 << 20, HasVideo: true, HasAudio: true, Quality: 720},
		},
	}}

	b := newTestBot(t, api, resolver, store)
	b.handleLink(context.Background(), linkMessage(7, "https://www.youtube.com/watch?v=ok1"))

	assert.True(t, api.offeredKeyboard(), "eligible candidates must produce a selection keyboard")
	assert.Equal(t, 1, store.Len(), "the session must stay pending until a selection arrives")
}
