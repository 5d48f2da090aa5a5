package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"

	"github.com/nicebartender/chatbridge/bot"
	"github.com/nicebartender/chatbridge/chat"
	"github.com/nicebartender/chatbridge/commands"
	"github.com/nicebartender/chatbridge/db"
	"github.com/nicebartender/chatbridge/events"
	"github.com/nicebartender/chatbridge/outbound"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg := LoadConfig()

	store, err := db.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	gov, err := outbound.NewGovernor(outbound.RegularCapacity, outbound.DefaultWindow)
	if err != nil {
		slog.Error("failed to build governor", "err", err)
		os.Exit(1)
	}

	client := chat.NewClient(cfg.NetworkURL, cfg.AuthToken)
	dispatcher := outbound.NewDispatcher(gov, client)
	registry := commands.NewRegistry()
	b := bot.New(gov, dispatcher, registry, store, cfg.Prefix, cfg.BotUserID)

	// One goroutine per inbound line: a governed reply may legitimately
	// block a full rate window, and the read loop must keep draining.
	client.OnMessage = func(m chat.Message) {
		go b.HandleMessage(context.Background(), m)
	}

	if err := client.Connect(); err != nil {
		slog.Error("chat connect failed", "err", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx := context.Background()
	for _, channel := range cfg.Channels {
		if err := client.JoinChannel(ctx, channel); err != nil {
			slog.Error("join failed", "channel", channel, "err", err)
		}
	}

	http.Handle("/hooks", events.NewWebhook(cfg.WebhookSecret, store, b.HandleRedemption))

	// Health check
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Recent chat log, mostly for debugging the bridge
	http.HandleFunc("/log", func(w http.ResponseWriter, r *http.Request) {
		channel := r.URL.Query().Get("channel")
		if channel == "" {
			http.Error(w, `{"error":"missing channel"}`, http.StatusBadRequest)
			return
		}
		messages, err := store.RecentMessages(channel, 50)
		if err != nil {
			http.Error(w, `{"error":"query failed"}`, http.StatusInternalServerError)
			return
		}
		if messages == nil {
			messages = []db.LoggedMessage{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"messages": messages})
	})

	http.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"connected":       client.IsConnected(),
			"tokensAvailable": gov.Available(),
		})
	})

	slog.Info("chatbridge starting", "addr", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, nil); err != nil {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}
