package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/trendlist/trendlist/internal/catalog"
	"github.com/trendlist/trendlist/internal/events/kafka"
	"github.com/trendlist/trendlist/internal/interfaces"
	"github.com/trendlist/trendlist/internal/models"
	"github.com/trendlist/trendlist/internal/ranking"
	"github.com/trendlist/trendlist/internal/storage/memory"
	"github.com/trendlist/trendlist/internal/storage/postgres"
	"github.com/trendlist/trendlist/internal/voting"
)

func main() {
	_ = godotenv.Load()

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	var store interfaces.CatalogStore
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			log.Fatal().Err(err).Msg("open database")
		}
		pgStore := postgres.New(db)
		if err := pgStore.EnsureSchema(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("ensure schema")
		}
		store = pgStore
		log.Info().Msg("using postgres catalog store")
	} else {
		store = memory.New()
		log.Info().Msg("using in-memory catalog store")
	}

	var publisher interfaces.EventPublisher
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		publisher = kafka.NewPublisher(strings.Split(brokers, ","))
		log.Info().Str("brokers", brokers).Msg("publishing catalog events")
	}

	ledger := voting.NewLedger(store, publisher, log)
	allocator := ranking.NewAllocator(store, publisher, log)
	reader := catalog.NewService(store)

	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("/items", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var req struct {
				Name    string `json:"name"`
				Keyword string `json:"keyword"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
				return
			}
			item, err := store.CreateItem(r.Context(), models.Item{Name: req.Name, Keyword: req.Keyword})
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusCreated, item)

		case http.MethodGet:
			items, err := reader.ListItems(r.Context())
			if err != nil {
				writeError(w, statusFor(err), err)
				return
			}
			writeJSON(w, http.StatusOK, items)

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/accounts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
			return
		}
		account, err := store.CreateAccount(r.Context(), models.Account{Name: req.Name})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusCreated, account)
	})

	mux.HandleFunc("/items/vote", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			AccountID string    `json:"account_id"`
			ItemID    string    `json:"item_id"`
			Amount    int       `json:"amount"`
			Time      time.Time `json:"time"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
			return
		}
		if req.Time.IsZero() {
			req.Time = time.Now().UTC()
		}
		if err := ledger.Vote(r.Context(), req.AccountID, req.ItemID, req.Amount, req.Time); err != nil {
			log.Warn().Err(err).Str("account_id", req.AccountID).Str("item_id", req.ItemID).Msg("vote rejected")
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "voted"})
	})

	mux.HandleFunc("/items/buy", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			ItemID string          `json:"item_id"`
			Amount decimal.Decimal `json:"amount"`
			Rank   int             `json:"rank"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
			return
		}
		if err := allocator.Buy(r.Context(), req.ItemID, req.Amount, req.Rank); err != nil {
			log.Warn().Err(err).Str("item_id", req.ItemID).Int("rank", req.Rank).Msg("buy rejected")
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "purchased"})
	})

	mux.HandleFunc("/accounts/balance", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		accountID := r.URL.Query().Get("account_id")
		if accountID == "" {
			writeError(w, http.StatusBadRequest, errors.New("account_id is a mandatory field"))
			return
		}
		balance, err := reader.Balance(r.Context(), accountID)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			AccountID string `json:"account_id"`
			Balance   int    `json:"balance"`
		}{AccountID: accountID, Balance: balance})
	})

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8080"
	}
	log.Info().Str("addr", addr).Msg("starting server")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

// statusFor maps service errors to HTTP status codes: absent resources to
// 404, other business rejections to 400 and transient store failures to 503.
func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrItemNotFound), errors.Is(err, catalog.ErrAccountNotFound):
		return http.StatusNotFound
	case catalog.IsRejection(err):
		return http.StatusBadRequest
	case catalog.IsTransient(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
