package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"challz/internal/api"
	"challz/internal/cache"
	"challz/internal/config"
	"challz/internal/events"
	"challz/internal/feed"
	"challz/internal/media"
	"challz/internal/models"
	"challz/internal/session"
)

func main() {
	logger, err := initLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	logger.Info("Starting Challz client")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Client.Environment),
		zap.String("api_url", cfg.API.BaseURL),
	)

	// Create cache
	cacheInstance, err := cache.New(&cache.Config{
		Provider:        cfg.Cache.Provider,
		TTL:             cfg.Cache.TTL,
		MaxKeys:         cfg.Cache.MaxKeys,
		CleanupInterval: cfg.Cache.CleanupInterval,
		RedisURL:        cfg.Cache.RedisURL,
		RedisDB:         cfg.Cache.RedisDB,
		RedisPassword:   cfg.Cache.RedisPassword,
		PoolSize:        cfg.Cache.PoolSize,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create cache", zap.Error(err))
	}
	defer cacheInstance.Close()

	// Event bus
	bus := events.NewBus(logger)

	// API client with a persistent token store
	tokens := api.NewFileTokenStore(cfg.Client.TokenPath)
	client := api.NewClient(api.ClientConfigFromApp(cfg), tokens, logger)

	// Cloudinary uploader; uploads stay disabled without an account
	var uploader media.Uploader
	if cfg.Cloudinary.Configured() {
		uploader, err = media.NewCloudinaryUploader(
			cfg.Cloudinary.CloudName,
			cfg.Cloudinary.APIKey,
			cfg.Cloudinary.APISecret,
			media.UploaderConfigFromApp(cfg),
			logger,
		)
		if err != nil {
			logger.Warn("Cloudinary initialization failed, uploads disabled", zap.Error(err))
			uploader = nil
		} else {
			logger.Info("Cloudinary uploader initialized")
		}
	}

	// Services
	mediaConfig := media.DefaultServiceConfig()
	mediaConfig.DefaultLimit = cfg.Client.FeedLimit
	mediaConfig.DefaultOrderBy = cfg.Client.FeedOrderBy
	mediaConfig.CacheTTL = cfg.Cache.TTL
	mediaConfig.MaxRetries = cfg.API.MaxRetries
	mediaConfig.RetryBase = cfg.API.RetryBase
	mediaService := media.NewService(client, uploader, cacheInstance, bus, logger, mediaConfig)

	sessionService := session.NewService(client, bus, logger)

	// Mutation queue reconciling optimistic counters in the background
	queue := feed.NewQueue(mediaService, bus, logger, 64)

	feedConfig := &feed.ControllerConfig{
		OrderBy:        cfg.Client.FeedOrderBy,
		Limit:          cfg.Client.FeedLimit,
		SwipeThreshold: cfg.Client.SwipeThreshold,
	}
	controller := feed.NewController(mediaService, sessionService, queue, bus, logger, feedConfig)

	bus.Subscribe(events.MutationFailed, func(e events.Event) {
		logger.Warn("counter reconciliation failed",
			zap.String("media_id", e.MediaID),
			zap.String("stat", string(e.Stat)),
			zap.Error(e.Err))
	})

	// Resolve any persisted session, then load the feed
	bootCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	sessionService.Resolve(bootCtx)
	controller.Load(bootCtx)
	cancel()

	runLoop(controller, sessionService, logger)

	// Drain pending reconciliations before exit
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := queue.Close(shutdownCtx); err != nil {
		logger.Warn("mutation queue did not drain", zap.Error(err))
	}

	logger.Info("Challz client stopped")
}

// runLoop drives the interactive feed from stdin. Commands mirror the
// gestures: next/prev navigate, like and comment mutate, me and login
// manage the session.
func runLoop(controller *feed.Controller, sessions *session.Service, logger *zap.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	printCurrent(controller)

	fmt.Println(`commands: next (n), prev (p), like (l), comments, comment <text>, refresh, login <email> <password>, me, logout, quit`)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		cmd, rest, _ := strings.Cut(line, " ")

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)

		switch cmd {
		case "", "next", "n":
			controller.Advance()
			printCurrent(controller)
		case "prev", "p":
			controller.Retreat()
			printCurrent(controller)
		case "like", "l":
			if err := controller.Like(ctx); err != nil {
				printActionError(err)
			} else {
				fmt.Println("liked")
			}
		case "comments":
			comments, err := controller.LoadComments(ctx)
			if err != nil {
				printActionError(err)
			} else {
				printComments(comments)
			}
		case "comment":
			comment, err := controller.Comment(ctx, rest)
			if err != nil {
				printActionError(err)
			} else if comment != nil {
				fmt.Printf("comment posted: %s\n", comment.Text)
			}
		case "refresh":
			controller.Load(ctx)
			printCurrent(controller)
		case "login":
			email, password, _ := strings.Cut(strings.TrimSpace(rest), " ")
			user, err := sessions.SignIn(ctx, email, password)
			if err != nil {
				printActionError(err)
			} else {
				fmt.Printf("signed in as %s\n", user.Username)
			}
		case "me":
			if user, ok := sessions.Current(); ok {
				fmt.Printf("%s <%s>\n", user.Username, user.Email)
			} else {
				fmt.Println("not signed in")
			}
		case "logout":
			sessions.Logout(ctx)
			fmt.Println("signed out")
		case "quit", "q", "exit":
			cancel()
			return
		default:
			fmt.Printf("unknown command: %s\n", cmd)
		}

		cancel()
	}
}

func printCurrent(controller *feed.Controller) {
	item, ok := controller.Current()
	if !ok {
		fmt.Println("no content")
		return
	}

	index, total := controller.Position()
	fmt.Printf("[%d/%d] %s by %s (%s)\n", index+1, total, item.Title, item.Username, item.Kind())
	if item.Description != "" {
		fmt.Printf("  %s\n", item.Description)
	}
	fmt.Printf("  likes=%d views=%d comments=%d\n", item.Likes, item.Views, item.Comments)
	fmt.Printf("  %s\n", item.PlayableURL())
}

func printComments(comments []models.Comment) {
	if len(comments) == 0 {
		fmt.Println("no comments yet")
		return
	}
	for _, comment := range comments {
		fmt.Printf("  %s: %s\n", comment.Username, comment.Text)
	}
}

func printActionError(err error) {
	if errors.Is(err, session.ErrLoginRequired) {
		fmt.Println("please log in first (login <email> <password>)")
		return
	}
	if apiErr, ok := api.AsAPIError(err); ok {
		fmt.Println(apiErr.DisplayMessage())
		return
	}
	fmt.Println(err)
}

func initLogger() (*zap.Logger, error) {
	env := os.Getenv("GO_ENV")
	var config zap.Config

	switch env {
	case "production":
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "staging":
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	default:
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}
