package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"shopsmart/internal/app"
	"shopsmart/internal/config"
	"shopsmart/internal/generator"
	"shopsmart/internal/history"
	"shopsmart/internal/shopping"
	"shopsmart/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap/zaptest"
)

const listBody = `{
	"items": [
		{"product": "Milk", "quantity": "1 l", "store": "Lidl", "approx_price": 0.99, "category": "dairy"},
		{"product": "Bread", "quantity": "1 loaf", "store": "Aldi", "approx_price": "1.79", "category": "bakery"},
		{"product": "Apples", "quantity": "1 kg", "store": "Lidl", "approx_price": 2.49, "category": "fruits"}
	],
	"total_cost": 5.27,
	"notes": "Seasonal fruit",
	"generated_at": "2025-01-20T10:30:00"
}`

type fakeMessenger struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeMessenger) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		f.texts = append(f.texts, m.Text)
	case tgbotapi.EditMessageTextConfig:
		f.texts = append(f.texts, m.Text)
	}
	return tgbotapi.Message{MessageID: len(f.texts)}, nil
}

func (f *fakeMessenger) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.texts) == 0 {
		return ""
	}
	return f.texts[len(f.texts)-1]
}

func (f *fakeMessenger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.texts)
}

func newTestBot(t *testing.T, allowed []int64, handler http.HandlerFunc) (*Bot, *fakeMessenger) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	log := zaptest.NewLogger(t)
	cfg := &config.Config{
		APIURL:                 server.URL,
		APITimeout:             2 * time.Second,
		Language:               "en",
		DataDir:                t.TempDir(),
		TelegramAllowedUserIDs: allowed,
	}
	client := generator.NewClient(cfg, generator.WithLogger(log))
	kv := storage.NewMemory()
	sessions := NewSessions(10, time.Hour, 60, func(chatID int64) *app.Controller {
		store := history.NewStore(kv, history.WithKey(HistoryKey(chatID)), history.WithLogger(log))
		return app.NewController(client, store, app.WithLogger(log))
	})

	api := &fakeMessenger{}
	return newBot(api, cfg, sessions, WithLogger(log)), api
}

func command(userID, chatID int64, text string) tgbotapi.Update {
	name := strings.Fields(text)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: chatID},
		Text: text,
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: len(name)},
		},
	}}
}

func TestHandleUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("ListAndHistory", func(t *testing.T) {
		var calls int
		var mu sync.Mutex
		bot, api := newTestBot(t, []int64{42}, func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			calls++
			mu.Unlock()
			w.Write([]byte(listBody))
		})

		bot.HandleUpdate(ctx, command(42, 7, "/list Lidl, Aldi | 50 | 2 | #vegan"))
		bot.Wait()

		out := api.last()
		if !strings.Contains(out, "*Lidl* · €3.48") {
			t.Errorf("Expected Lidl group with subtotal, got:\n%s", out)
		}
		if !strings.Contains(out, "*Aldi* · €1.79") {
			t.Errorf("Expected Aldi group with subtotal, got:\n%s", out)
		}
		if !strings.Contains(out, "€5.27 of €50.00 (11%)") {
			t.Errorf("Expected budget line, got:\n%s", out)
		}

		bot.HandleUpdate(ctx, command(42, 7, "/history"))
		if out := api.last(); !strings.Contains(out, "3 items · €5.27 of €50.00") {
			t.Errorf("Expected one saved list, got:\n%s", out)
		}

		bot.HandleUpdate(ctx, command(42, 7, "/check 2"))
		if out := api.last(); !strings.Contains(out, "✅ 2.") || !strings.Contains(out, "1/3 checked") {
			t.Errorf("Expected item 2 checked, got:\n%s", out)
		}

		bot.HandleUpdate(ctx, command(42, 7, "/reset"))
		bot.HandleUpdate(ctx, command(42, 7, "/load 1"))
		if out := api.last(); !strings.Contains(out, "Milk") || strings.Contains(out, "checked") {
			t.Errorf("Expected loaded list with fresh checklist, got:\n%s", out)
		}

		bot.HandleUpdate(ctx, command(42, 7, "/delete 1"))
		if out := api.last(); !strings.Contains(out, "No saved lists") {
			t.Errorf("Expected empty history, got:\n%s", out)
		}

		mu.Lock()
		defer mu.Unlock()
		if calls != 1 {
			t.Errorf("Expected 1 generation request, got %d", calls)
		}
	})

	t.Run("ServerError", func(t *testing.T) {
		bot, api := newTestBot(t, nil, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"detail": "upstream unavailable"}`))
		})

		bot.HandleUpdate(ctx, command(1, 1, "/list Rewe | 20"))
		bot.Wait()
		if out := api.last(); !strings.Contains(out, "upstream unavailable") {
			t.Errorf("Expected server detail, got:\n%s", out)
		}
	})

	t.Run("OutOfRangePrice", func(t *testing.T) {
		bot, api := newTestBot(t, nil, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"items": [{"product": "Gold", "quantity": "1", "store": "Rewe", "approx_price": 1e400}], "total_cost": 1}`))
		})

		bot.HandleUpdate(ctx, command(1, 1, "/list Rewe | 20"))
		bot.Wait()
		if out := api.last(); !strings.Contains(out, "*Rewe* · €0.00") {
			t.Errorf("Expected the list to render, got:\n%s", out)
		}
	})

	t.Run("Unauthorized", func(t *testing.T) {
		bot, api := newTestBot(t, []int64{42}, func(w http.ResponseWriter, r *http.Request) {
			t.Error("Expected no generation request")
		})

		bot.HandleUpdate(ctx, command(99, 99, "/list Lidl | 50"))
		bot.Wait()
		if api.count() != 0 {
			t.Errorf("Expected no replies, got %d", api.count())
		}
	})

	t.Run("BadArguments", func(t *testing.T) {
		bot, api := newTestBot(t, nil, func(w http.ResponseWriter, r *http.Request) {
			t.Error("Expected no generation request")
		})

		bot.HandleUpdate(ctx, command(1, 1, "/list Lidl | lots"))
		if out := api.last(); !strings.Contains(out, "budget must be a number") {
			t.Errorf("Expected budget error, got:\n%s", out)
		}
		bot.HandleUpdate(ctx, command(1, 1, "/load 3"))
		if out := api.last(); !strings.Contains(out, "nothing to pick from") {
			t.Errorf("Expected empty history error, got:\n%s", out)
		}
	})

	t.Run("Help", func(t *testing.T) {
		bot, api := newTestBot(t, nil, func(w http.ResponseWriter, r *http.Request) {})

		bot.HandleUpdate(ctx, command(1, 1, "/start"))
		if out := api.last(); !strings.Contains(out, "/history") {
			t.Errorf("Expected help text, got:\n%s", out)
		}
	})
}

func TestHandleWebhook(t *testing.T) {
	bot, api := newTestBot(t, nil, func(w http.ResponseWriter, r *http.Request) {})
	mux := http.NewServeMux()
	bot.RegisterHandlers(mux)

	body := `{"update_id": 1, "message": {"message_id": 1, "from": {"id": 5}, "chat": {"id": 5}, "text": "/start",
		"entities": [{"type": "bot_command", "offset": 0, "length": 6}]}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(api.last(), "ShopSmart") {
		t.Errorf("Expected help reply, got %q", api.last())
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a broken update, got %d", rec.Code)
	}
}

func TestParseRequest(t *testing.T) {
	t.Run("Shopping", func(t *testing.T) {
		in, err := parseRequest("Lidl, Aldi | €45.50 | 3 | cheap #vegan", shopping.ModeShopping, "de")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if len(in.Supermarkets) != 2 || in.Supermarkets[1] != "Aldi" {
			t.Errorf("Unexpected stores: %v", in.Supermarkets)
		}
		if in.Budget != 45.5 || in.FamilySize != 3 || in.Language != "de" {
			t.Errorf("Unexpected input: %+v", in)
		}
		if in.Preferences != "cheap, vegan diet, no animal products" {
			t.Errorf("Unexpected preferences: %q", in.Preferences)
		}
	})

	t.Run("Defaults", func(t *testing.T) {
		in, err := parseRequest("Rewe | 20", shopping.ModeShopping, "en")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if in.FamilySize != shopping.DefaultFamilySize || in.Preferences != "" {
			t.Errorf("Unexpected defaults: %+v", in)
		}
	})

	t.Run("Menu", func(t *testing.T) {
		in, err := parseRequest("5 | Edeka | 80", shopping.ModeMenu, "en")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if in.Days != 5 || in.Mode != shopping.ModeMenu {
			t.Errorf("Unexpected menu input: %+v", in)
		}
	})

	for name, args := range map[string]string{
		"Empty":       "",
		"NoBudget":    "Lidl",
		"ZeroBudget":  "Lidl | 0",
		"BadFamily":   "Lidl | 10 | many",
		"EmptyStores": " , | 10",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := parseRequest(args, shopping.ModeShopping, "en"); err == nil {
				t.Errorf("Expected error for %q", args)
			}
		})
	}
}

func TestSessions(t *testing.T) {
	built := 0
	s := NewSessions(2, time.Hour, 1, func(int64) *app.Controller {
		built++
		return app.NewController(nil, history.NewStore(storage.NewMemory()))
	})

	a := s.Get(1)
	if s.Get(1) != a {
		t.Error("Expected the cached session")
	}
	s.Get(2)
	s.Get(3)
	if s.Len() != 2 || built != 3 {
		t.Errorf("Expected 2 live sessions from 3 builds, got %d and %d", s.Len(), built)
	}

	if !a.Allow() {
		t.Error("Expected the first request to pass")
	}
	if a.Allow() {
		t.Error("Expected the second immediate request to be throttled")
	}
}
