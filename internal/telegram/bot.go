package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"shopsmart/internal/app"
	"shopsmart/internal/config"
	"shopsmart/internal/logger"
	"shopsmart/internal/metrics"
	"shopsmart/internal/shopping"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Messenger is the part of the Telegram API the bot uses.
type Messenger interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// UsageReporter provides the numbers behind /metrics.
type UsageReporter interface {
	GetDailyUsage(ctx context.Context, days int) ([]metrics.DailyUsage, error)
}

// Bot serves ShopSmart over a Telegram webhook, one session per chat.
type Bot struct {
	api      Messenger
	sessions *Sessions
	allowed  map[int64]bool
	language string
	dataDir  string
	usage    UsageReporter
	logger   *zap.Logger

	wg sync.WaitGroup
}

// Option configures a Bot.
type Option func(*Bot)

// WithUsage enables /metrics.
func WithUsage(u UsageReporter) Option {
	return func(b *Bot) { b.usage = u }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Bot) { b.logger = logger.OrNop(l) }
}

// NewBot connects to Telegram and points its webhook at cfg.TelegramWebhookURL.
func NewBot(cfg *config.Config, sessions *Sessions, opts ...Option) (*Bot, error) {
	if err := cfg.RequireTelegram(); err != nil {
		return nil, err
	}
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook config: %w", err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}

	b := newBot(api, cfg, sessions, opts...)
	b.logger.Info("telegram bot authorized",
		zap.String("account", api.Self.UserName),
		zap.String("webhook", resp.Description),
	)
	return b, nil
}

func newBot(api Messenger, cfg *config.Config, sessions *Sessions, opts ...Option) *Bot {
	b := &Bot{
		api:      api,
		sessions: sessions,
		allowed:  make(map[int64]bool, len(cfg.TelegramAllowedUserIDs)),
		language: cfg.Language,
		dataDir:  cfg.DataDir,
		logger:   zap.NewNop(),
	}
	for _, id := range cfg.TelegramAllowedUserIDs {
		b.allowed[id] = true
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// RegisterHandlers mounts the webhook and a liveness probe on mux.
func (b *Bot) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", b.handleWebhook)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

// Wait blocks until background generations have finished.
func (b *Bot) Wait() {
	b.wg.Wait()
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		b.logger.Warn("failed to parse update", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
	b.HandleUpdate(r.Context(), update)
}

// HandleUpdate serves one update. Generations continue in the background
// after it returns.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}
	if !b.isAllowed(msg.From.ID) {
		b.logger.Warn("unauthorized access attempt",
			zap.Int64("user_id", msg.From.ID),
			zap.String("username", msg.From.UserName),
		)
		return
	}

	sess := b.sessions.Get(msg.Chat.ID)
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "list":
		b.startGeneration(sess, chatID, args, shopping.ModeShopping)
	case "menu":
		b.startGeneration(sess, chatID, args, shopping.ModeMenu)
	case "check":
		b.handleCheck(sess, chatID, args)
	case "history":
		b.reply(chatID, formatHistory(sess.Controller.History(ctx)))
	case "load":
		b.handleLoad(ctx, sess, chatID, args)
	case "delete":
		b.handleDelete(ctx, sess, chatID, args)
	case "clear":
		sess.Controller.ClearHistory(ctx)
		b.reply(chatID, "🗑 History cleared.")
	case "reset":
		sess.Controller.Reset()
		sess.resetChecklist()
		b.reply(chatID, "🔄 Ready for a new list.")
	case "health":
		if sess.Controller.CheckAvailability(ctx) {
			b.reply(chatID, "✅ Generation service is available.")
		} else {
			b.reply(chatID, "❌ Generation service is unavailable.")
		}
	case "metrics":
		b.handleMetrics(ctx, chatID)
	default:
		b.reply(chatID, helpText)
	}
}

func (b *Bot) isAllowed(userID int64) bool {
	return len(b.allowed) == 0 || b.allowed[userID]
}

func (b *Bot) startGeneration(sess *Session, chatID int64, args string, mode shopping.Mode) {
	in, err := parseRequest(args, mode, b.language)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("⚠️ %s\n\n%s", esc(err.Error()), usageFor(mode)))
		return
	}
	if sess.Controller.State() == app.StatePending {
		b.reply(chatID, "⏳ A list is already being generated.")
		return
	}
	if !sess.Allow() {
		b.reply(chatID, "🐢 Too many requests. Please wait a moment.")
		return
	}

	sent, err := b.api.Send(markdown(chatID, "🧑‍🍳 *Thinking...*\n(Putting your list together)"))
	if err != nil {
		b.logger.Error("failed to send initial reply", zap.Error(err))
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.generate(sess, chatID, sent.MessageID, in)
	}()
}

// generate runs detached from the webhook request so Telegram gets its
// response right away; the client timeout bounds it.
func (b *Bot) generate(sess *Session, chatID int64, messageID int, in shopping.UserInput) {
	_, err := sess.Controller.Submit(context.Background(), in)
	var text string
	switch {
	case err == nil:
		sess.resetChecklist()
		view, verr := sess.Controller.View()
		if verr != nil {
			text = "❌ " + esc(verr.Error())
			break
		}
		text = sess.render(view)
	case errors.Is(err, app.ErrGenerationInFlight):
		text = "⏳ A list is already being generated."
	case errors.Is(err, app.ErrReset):
		text = "🗑 Discarded."
	default:
		text = "❌ *Error:* " + esc(sess.Controller.Snapshot().Error)
	}

	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Error("failed to send generation result", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) handleCheck(sess *Session, chatID int64, args string) {
	view, err := sess.Controller.View()
	if err != nil {
		b.reply(chatID, "📭 No list yet. Try /list or /history.")
		return
	}
	n, err := parsePosition(args, view.ItemCount)
	if err != nil {
		b.reply(chatID, "⚠️ "+esc(err.Error()))
		return
	}
	sess.Toggle(n - 1)
	b.reply(chatID, sess.render(view))
}

func (b *Bot) handleLoad(ctx context.Context, sess *Session, chatID int64, args string) {
	entries := sess.Controller.History(ctx)
	n, err := parsePosition(args, len(entries))
	if err != nil {
		b.reply(chatID, "⚠️ "+esc(err.Error()))
		return
	}
	if _, err := sess.Controller.LoadFromHistory(ctx, entries[n-1].ID); err != nil {
		b.reply(chatID, "❌ "+esc(err.Error()))
		return
	}
	sess.resetChecklist()
	view, err := sess.Controller.View()
	if err != nil {
		b.reply(chatID, "❌ "+esc(err.Error()))
		return
	}
	b.reply(chatID, sess.render(view))
}

func (b *Bot) handleDelete(ctx context.Context, sess *Session, chatID int64, args string) {
	entries := sess.Controller.History(ctx)
	n, err := parsePosition(args, len(entries))
	if err != nil {
		b.reply(chatID, "⚠️ "+esc(err.Error()))
		return
	}
	sess.Controller.DeleteHistory(ctx, entries[n-1].ID)
	b.reply(chatID, formatHistory(sess.Controller.History(ctx)))
}

func (b *Bot) handleMetrics(ctx context.Context, chatID int64) {
	if b.usage == nil {
		b.reply(chatID, "📊 Metrics are not kept with the memory backend.")
		return
	}
	usage, err := b.usage.GetDailyUsage(ctx, 7)
	if err != nil {
		b.logger.Error("failed to fetch metrics", zap.Error(err))
		b.reply(chatID, "❌ Error fetching metrics.")
		return
	}
	b.reply(chatID, formatMetrics(usage, metrics.GetSysHealth(b.dataDir)))
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(markdown(chatID, text)); err != nil {
		b.logger.Error("failed to send reply", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func markdown(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	return msg
}

func usageFor(mode shopping.Mode) string {
	if mode == shopping.ModeMenu {
		return "Usage: /menu <days> | <stores> | <budget> | \\[family] | \\[preferences]"
	}
	return "Usage: /list <stores> | <budget> | \\[family] | \\[preferences]"
}

// parseRequest reads "/list stores | budget | family | prefs" arguments, with
// a leading "days |" field for menus. Words starting with # in preferences
// select presets.
func parseRequest(args string, mode shopping.Mode, language string) (shopping.UserInput, error) {
	fields := strings.Split(args, "|")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	in := shopping.UserInput{
		FamilySize: shopping.DefaultFamilySize,
		Language:   language,
		Mode:       mode,
	}

	if mode == shopping.ModeMenu {
		days, err := strconv.Atoi(fields[0])
		if err != nil {
			return in, fmt.Errorf("days must be a number, got %q", fields[0])
		}
		in.Days = days
		fields = fields[1:]
	}
	if len(fields) < 2 || fields[0] == "" {
		return in, fmt.Errorf("stores and budget are required")
	}

	for _, store := range strings.Split(fields[0], ",") {
		if store = strings.TrimSpace(store); store != "" {
			in.Supermarkets = append(in.Supermarkets, store)
		}
	}

	budget := shopping.ParsePrice(strings.TrimPrefix(fields[1], "€"))
	if !budget.Valid() {
		return in, fmt.Errorf("budget must be a number, got %q", fields[1])
	}
	in.Budget = budget.Float64()

	if len(fields) > 2 && fields[2] != "" {
		size, err := strconv.Atoi(fields[2])
		if err != nil {
			return in, fmt.Errorf("family size must be a number, got %q", fields[2])
		}
		in.FamilySize = size
	}

	if len(fields) > 3 {
		var words, presets []string
		for _, w := range strings.Fields(strings.Join(fields[3:], " ")) {
			if id, ok := strings.CutPrefix(w, "#"); ok {
				presets = append(presets, id)
				continue
			}
			words = append(words, w)
		}
		in.Preferences = strings.Join(words, " ")
		in = in.WithPresets(presets...)
	}

	return in, in.Validate()
}

// parsePosition reads a 1-based position in [1, limit].
func parsePosition(args string, limit int) (int, error) {
	if limit == 0 {
		return 0, fmt.Errorf("nothing to pick from")
	}
	n, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil || n < 1 || n > limit {
		return 0, fmt.Errorf("pick a number from 1 to %d", limit)
	}
	return n, nil
}
