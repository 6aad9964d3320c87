package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"sociogram/internal/api"
	"sociogram/internal/cache"
	"sociogram/internal/discord"
	"sociogram/internal/render"
	"sociogram/internal/social"
	"sociogram/internal/store"
	"sociogram/pkg/config"
	"sociogram/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	if err := logger.Init(cfg.Env); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting sociogram bot...")

	if cfg.DiscordBotToken == "" {
		log.Fatal("DISCORD_BOT_TOKEN is required")
	}

	// Optional relationship-event sink
	var recorder store.Recorder = store.NewNoop()
	if cfg.Neo4jEnabled {
		driver, err := neo4j.NewDriverWithContext(
			cfg.Neo4jURI,
			neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
		)
		if err != nil {
			log.Fatal("Failed to create Neo4j driver", zap.Error(err))
		}
		defer driver.Close(context.Background())

		if err := driver.VerifyConnectivity(context.Background()); err != nil {
			log.Fatal("Failed to verify Neo4j connectivity", zap.Error(err))
		}

		recorder = store.NewNeo4jRecorder(driver)
		log.Info("Relationship-event sink enabled", zap.String("uri", cfg.Neo4jURI))
	}

	// Create Discord session
	dg, err := discordgo.New("Bot " + cfg.DiscordBotToken)
	if err != nil {
		log.Fatal("Failed to create Discord session", zap.Error(err))
	}

	// Assemble the pipeline: cache -> extractor -> graph store -> exporter
	entityCache, err := cache.New(cache.NewSessionFetcher(dg), cfg.CacheSize, log)
	if err != nil {
		log.Fatal("Failed to create entity cache", zap.Error(err))
	}

	extractor := social.NewExtractor(entityCache, log)
	graphs := social.NewStore(social.DefaultWeights(), recorder, log)
	exporter := social.NewExporter(entityCache)
	renderer := render.NewGraphviz(cfg.DotBinary)

	handler := discord.NewHandler(cfg, entityCache, extractor, graphs, exporter, renderer, log)
	handler.Register(dg)

	// Required intents:
	// - IntentsGuilds: guild/channel/role lifecycle events
	// - IntentsGuildMessages: message events for interaction extraction
	// - IntentsGuildMessageReactions: reaction events
	// - IntentsGuildMembers: member add/update/chunk for the members table
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsGuildMembers

	// Debug API runs alongside the gateway connection
	debugServer := api.NewServer(entityCache, graphs, exporter, cfg.IsProduction(), log)
	go func() {
		addr := ":" + cfg.Port
		log.Info("Debug API listening", zap.String("addr", addr))
		if err := debugServer.Run(addr); err != nil {
			log.Error("Debug API stopped", zap.Error(err))
		}
	}()

	// Open connection
	if err := dg.Open(); err != nil {
		log.Fatal("Failed to open Discord connection", zap.Error(err))
	}
	defer dg.Close()

	log.Info("Bot is running. Press CTRL-C to exit.")

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-shutdownChan

	log.Info("Shutting down...")
}
