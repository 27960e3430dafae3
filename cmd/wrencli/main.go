package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	wrengo "github.com/wrenhq/wren-go"
	"github.com/wrenhq/wren-go/cache"
	"github.com/wrenhq/wren-go/config"
)

func main() {
	configPath := flag.String("config", "wren.yaml", "Path to the YAML config file")
	username := flag.String("username", "", "Username to log in with (or WREN_USERNAME)")
	password := flag.String("password", "", "Password to log in with (or WREN_PASSWORD)")
	fetchPath := flag.String("fetch", "/api/profile", "API path to fetch after login")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	options := []wrengo.ClientOption{
		wrengo.WithLogger(logger),
		wrengo.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout.Std()}),
	}
	if cfg.RefreshTokenPath != "" {
		options = append(options, wrengo.WithRefreshTokenPath(cfg.RefreshTokenPath))
	}

	var store cache.Store
	if cfg.CacheTTL.Std() > 0 {
		if cfg.CachePath != "" {
			store, err = cache.NewSQLiteStore(cfg.CachePath)
			if err != nil {
				logger.Error("Failed to open response cache", "path", cfg.CachePath, "error", err)
				os.Exit(1)
			}
		} else {
			store = cache.NewMemoryStore()
		}
		defer store.Close()
		options = append(options, wrengo.WithResponseCache(store, cfg.CacheTTL.Std()))
	}

	client := wrengo.NewClient(cfg.BaseURL, options...)

	client.EnableReauth(wrengo.ReauthConfig{
		LoginPath:      cfg.LoginPath,
		VerifyEndpoint: cfg.VerifyPath,
		Navigate: func(path string) {
			fmt.Printf("Session ended. Log in again at %s%s\n", cfg.BaseURL, path)
		},
		Logger: logger,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// Reuse an existing session when possible; fall back to credentials.
	if err := client.Initialize(ctx); err != nil {
		user, pass := *username, *password
		if user == "" {
			user = os.Getenv("WREN_USERNAME")
		}
		if pass == "" {
			pass = os.Getenv("WREN_PASSWORD")
		}
		if err := client.Login(ctx, user, pass); err != nil {
			rec := wrengo.Classify(err)
			logger.Error("Login failed", "status", rec.StatusCode)
			fmt.Fprintln(os.Stderr, rec.UserMessage())
			os.Exit(1)
		}
	}

	resp, err := client.Get(ctx, *fetchPath, nil)
	if err != nil {
		rec := wrengo.Classify(err)
		fmt.Fprintln(os.Stderr, rec.UserMessage())
		os.Exit(1)
	}
	defer resp.Body.Close()

	fmt.Printf("GET %s -> %s\n", *fetchPath, resp.Status)
}
