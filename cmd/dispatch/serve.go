package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/fixlifyapp/fixlyfy-ai-automate-sub010/internal/business"
	"github.com/fixlifyapp/fixlyfy-ai-automate-sub010/internal/config"
	"github.com/fixlifyapp/fixlyfy-ai-automate-sub010/internal/db"
	"github.com/fixlifyapp/fixlyfy-ai-automate-sub010/internal/dialogue"
	"github.com/fixlifyapp/fixlyfy-ai-automate-sub010/internal/notify"
	"github.com/fixlifyapp/fixlyfy-ai-automate-sub010/internal/outcome"
	"github.com/fixlifyapp/fixlyfy-ai-automate-sub010/internal/resilience"
	"github.com/fixlifyapp/fixlyfy-ai-automate-sub010/internal/session"
	"github.com/fixlifyapp/fixlyfy-ai-automate-sub010/internal/webhook"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the voice webhook server",
		Long:  "Starts the carrier-facing webhook server and answers calls for every configured number.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "dispatch.yaml", "path to dispatch config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	if port <= 0 {
		port = cfg.Server.Port
	}

	handler, registry, limiter, err := buildHandler(cfg, gormDB)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	return webhook.Start(ctx, webhook.StartOpts{
		Handler:  handler,
		Registry: registry,
		Limiter:  limiter,
		Port:     port,
		Out:      cmd.OutOrStdout(),
	})
}

// buildHandler wires the full call-handling stack from configuration.
func buildHandler(cfg *config.Config, gormDB *gorm.DB) (*webhook.Handler, *session.Registry, *resilience.RateLimiter, error) {
	model, err := dialogue.NewHTTPModel(dialogue.HTTPModelOpts{
		Endpoint:  cfg.Model.Endpoint,
		APIKey:    cfg.Model.APIKey,
		Model:     cfg.Model.Name,
		MaxTokens: cfg.Model.MaxTokens,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	breakers := resilience.NewRegistry(resilience.RegistryOpts{
		FailureThreshold: cfg.Resilience.FailureThreshold,
		RecoveryTimeout:  cfg.RecoveryTimeout(),
	})
	engine, err := dialogue.NewEngine(dialogue.EngineOpts{
		Model:    model,
		Breakers: breakers,
		Retry: resilience.RetryOpts{
			MaxRetries:  cfg.Resilience.MaxRetries,
			BaseDelay:   cfg.RetryBaseDelay(),
			MaxDelay:    cfg.RetryMaxDelay(),
			Exponential: cfg.Resilience.Exponential,
		},
		WordBudget: cfg.Conversation.ReplyWordBudget,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	resolver, err := business.NewResolver(business.ResolverOpts{
		Store: business.NewGormStore(gormDB),
		TTL:   cfg.ContextTTL(),
	})
	if err != nil {
		return nil, nil, nil, err
	}

	outcomes, err := outcome.NewLogger(outcome.NewGormStore(gormDB))
	if err != nil {
		return nil, nil, nil, err
	}

	registry := session.NewRegistry(session.RegistryOpts{
		HistoryCap: cfg.Conversation.HistoryCap,
		ReapTTL:    cfg.SessionReapTTL(),
	})
	limiter := resilience.NewRateLimiter()

	handler, err := webhook.NewHandler(webhook.HandlerOpts{
		Config:   cfg,
		Registry: registry,
		Resolver: resolver,
		Engine:   engine,
		Outcomes: outcomes,
		Notifier: notify.NewDispatcher(buildAdapters(cfg)...),
		Limiter:  limiter,
		DB:       gormDB,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return handler, registry, limiter, nil
}

// buildAdapters creates the notification adapters whose credentials are
// configured. A bad credential set disables that channel with a log
// line rather than failing startup.
func buildAdapters(cfg *config.Config) []notify.Adapter {
	var adapters []notify.Adapter
	if cfg.Notify.SlackBotToken != "" {
		slack, err := notify.NewSlackAdapter(notify.SlackOpts{
			BotToken:  cfg.Notify.SlackBotToken,
			ChannelID: cfg.Notify.SlackChannelID,
		})
		if err != nil {
			log.Printf("serve: slack notifications disabled: %v", err)
		} else {
			adapters = append(adapters, slack)
		}
	}
	if cfg.Notify.DiscordToken != "" {
		discord, err := notify.NewDiscordAdapter(notify.DiscordOpts{
			BotToken:  cfg.Notify.DiscordToken,
			ChannelID: cfg.Notify.DiscordChannel,
		})
		if err != nil {
			log.Printf("serve: discord notifications disabled: %v", err)
		} else {
			adapters = append(adapters, discord)
		}
	}
	return adapters
}
