package main

import (
	"flag"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	ListenAddr    string   `toml:"listen_addr"`
	NetworkURL    string   `toml:"network_url"`
	AuthToken     string   `toml:"auth_token"`
	WebhookSecret string   `toml:"webhook_secret"`
	DBPath        string   `toml:"db_path"`
	Channels      []string `toml:"channels"`
	Prefix        string   `toml:"prefix"`
	BotUserID     string   `toml:"bot_user_id"`
}

func LoadConfig() Config {
	cfg := Config{
		ListenAddr: defaultAddr(),
		DBPath:     "chatbridge.db",
		Prefix:     "!",
	}

	configPath := flag.String("config", envOrDefault("CHATBRIDGE_CONFIG", ""), "TOML config file")
	addr := flag.String("addr", "", "Listen address (overrides config file)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config file)")
	networkURL := flag.String("network-url", "", "Chat network websocket URL (overrides config file)")
	channels := flag.String("channels", "", "Comma-separated channels to join (overrides config file)")
	flag.Parse()

	if *configPath != "" {
		if _, err := toml.DecodeFile(*configPath, &cfg); err != nil {
			slog.Error("failed to load config file", "path", *configPath, "err", err)
			os.Exit(1)
		}
	}

	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *networkURL != "" {
		cfg.NetworkURL = *networkURL
	}
	if *channels != "" {
		cfg.Channels = strings.Split(*channels, ",")
	}

	// Secrets come from the environment, never flags.
	if v := os.Getenv("CHATBRIDGE_TOKEN"); v != "" {
		cfg.AuthToken = v
	}
	if v := os.Getenv("CHATBRIDGE_WEBHOOK_SECRET"); v != "" {
		cfg.WebhookSecret = v
	}

	return cfg
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultAddr() string {
	if v := os.Getenv("CHATBRIDGE_ADDR"); v != "" {
		return v
	}
	// Railway, Render, etc. set PORT
	if port := os.Getenv("PORT"); port != "" {
		return ":" + port
	}
	return ":8090"
}
