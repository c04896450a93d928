package market

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"

	marketDI "github.com/fd1az/marketlive/business/market/di"
	"github.com/fd1az/marketlive/internal/config"
	"github.com/fd1az/marketlive/internal/health"
	"github.com/fd1az/marketlive/internal/logger"
	"github.com/fd1az/marketlive/internal/monolith"
)

func marketServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/items", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]map[string]string{
			{"id": "1", "name": "Desk lamp", "price": "$10.00 USD"},
			{"id": "2", "name": "Bookshelf", "price": "$80.00 USD"},
		})
	})
	mux.HandleFunc("/ws/prices", func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()

		ctx := r.Context()
		conn.Write(ctx, websocket.MessageText, []byte(`{"type":"connected","message":"welcome"}`))
		// Give the initial listing time to land before pushing.
		time.Sleep(100 * time.Millisecond)
		conn.Write(ctx, websocket.MessageText, []byte(`{"type":"price_update","itemId":1,"newPrice":"$12.50 USD"}`))
		conn.Read(ctx)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "marketlive-test"},
		Server: config.ServerConfig{
			BaseURL:           baseURL,
			RequestTimeout:    2 * time.Second,
			RequestsPerMinute: 600,
			BreakerMaxFails:   5,
			BreakerTimeout:    time.Second,
		},
		Feed: config.FeedConfig{
			Path:           "/ws/prices",
			ReconnectDelay: 200 * time.Millisecond,
			DialTimeout:    2 * time.Second,
			ReadLimit:      64 * 1024,
		},
		View: config.ViewConfig{
			HighlightDuration:      50 * time.Millisecond,
			OfferHighlightDuration: 50 * time.Millisecond,
			AlertDuration:          time.Second,
		},
	}
}

func TestModule_StartsFeedAndListing(t *testing.T) {
	server := marketServer(t)
	log := logger.New(io.Discard, logger.LevelError, "test", nil)
	hs := health.NewServer(0, "test", log)

	mono, err := monolith.New(testConfig(server.URL), log, hs)
	if err != nil {
		t.Fatalf("monolith.New: %v", err)
	}
	defer mono.Close()

	mod := &Module{}
	if err := mono.RegisterModules(mod); err != nil {
		t.Fatalf("RegisterModules: %v", err)
	}
	if err := mono.StartModules(context.Background(), mod); err != nil {
		t.Fatalf("StartModules: %v", err)
	}

	svc := marketDI.GetMarketService(mono.Services())

	deadline := time.Now().Add(3 * time.Second)
	for {
		rows := svc.Snapshot().Rows
		if len(rows) == 2 && rows[0].Price == "$12.50 USD" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("price update never reached the grid: %+v", rows)
		}
		time.Sleep(10 * time.Millisecond)
	}

	rec := httptest.NewRecorder()
	hs.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/ready = %d %s", rec.Code, rec.Body.String())
	}

	if err := mono.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := svc.Reconnect(context.Background()); err == nil {
		t.Error("expected Reconnect after shutdown to fail")
	}
}
