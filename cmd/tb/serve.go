package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/zulandar/taskboard/internal/audit"
	"github.com/zulandar/taskboard/internal/config"
	"github.com/zulandar/taskboard/internal/db"
	"github.com/zulandar/taskboard/internal/feed"
	"github.com/zulandar/taskboard/internal/feed/discord"
	"github.com/zulandar/taskboard/internal/feed/slack"
	"github.com/zulandar/taskboard/internal/server"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		Long:  "Starts the JSON API and, when chat tokens are configured, the activity feed forwarder.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "taskboard.yaml", "path to config file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	// Secrets may live in a .env next to the config; absence is fine.
	godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.DB)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	adapters, err := buildAdapters(cfg.Feed)
	if err != nil {
		return err
	}
	if len(adapters) > 0 {
		forwarder, err := feed.NewForwarder(feed.ForwarderOpts{
			DB:           gormDB,
			Adapters:     adapters,
			PollInterval: time.Duration(cfg.Feed.PollSeconds) * time.Second,
			DigestCron:   cfg.Feed.DigestCron,
		})
		if err != nil {
			return err
		}
		go func() {
			if err := forwarder.Run(ctx); err != nil && err != context.Canceled {
				log.Printf("feed forwarder stopped: %v", err)
			}
		}()
	}

	return server.Start(ctx, server.StartOpts{
		DB:       gormDB,
		Port:     cfg.Server.Port,
		Recorder: audit.NewDBRecorder(gormDB),
		Out:      cmd.OutOrStdout(),
	})
}

// buildAdapters creates one feed adapter per configured chat platform.
func buildAdapters(cfg config.FeedConfig) ([]feed.Adapter, error) {
	var adapters []feed.Adapter

	if cfg.Slack.BotToken != "" {
		a, err := slack.New(slack.AdapterOpts{
			BotToken: cfg.Slack.BotToken,
			Channel:  cfg.Slack.Channel,
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}

	if cfg.Discord.BotToken != "" {
		a, err := discord.New(discord.AdapterOpts{
			BotToken:  cfg.Discord.BotToken,
			ChannelID: cfg.Discord.ChannelID,
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}

	return adapters, nil
}
