package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	pkg "git.solsynth.dev/hypernet/chat/pkg/internal"
	"git.solsynth.dev/hypernet/chat/pkg/internal/cache"
	"git.solsynth.dev/hypernet/chat/pkg/internal/database"
	"git.solsynth.dev/hypernet/chat/pkg/internal/grpc"
	"git.solsynth.dev/hypernet/chat/pkg/internal/server"
	"git.solsynth.dev/hypernet/chat/pkg/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
}

func main() {
	// Configure settings
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("settings")
	viper.SetConfigType("toml")
	viper.SetEnvPrefix("CHAT")
	viper.AutomaticEnv()

	// Load settings
	if err := viper.ReadInConfig(); err != nil {
		log.Panic().Err(err).Msg("An error occurred when loading settings.")
	}
	if viper.GetBool("debug.verbose") {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	if err := database.NewSource(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when connect to database.")
	} else if err := database.RunMigration(database.C); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when running database auto migration.")
	}

	// Initialize cache
	if err := cache.NewCache(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when initializing cache.")
	}

	// Relay the change feed between instances
	if channel := viper.GetString("feed.relay_channel"); len(channel) > 0 {
		services.Feed.EnableRelay(cache.R, channel)
		go func() {
			if err := services.Feed.RunRelay(ctx); err != nil {
				log.Error().Err(err).Msg("An error occurred when running feed relay...")
			}
		}()
	}

	// Connect other services
	services.NewNotifier()
	if err := services.NewStorage(ctx); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when connecting to attachment storage.")
	}
	services.SetupLimiter()

	// Server
	server.NewServer()
	go server.Listen()

	grpcServer := grpc.NewGrpc()
	go func() {
		if err := grpcServer.Listen(); err != nil {
			log.Fatal().Err(err).Msg("An error occurred when starting grpc server...")
		}
	}()

	// Configure timed tasks
	quartz := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(&log.Logger)))
	quartz.AddFunc("@every 60m", services.DoAutoDatabaseCleanup)
	quartz.Start()

	// Messages
	log.Info().Msgf("Chat v%s is started...", pkg.AppVersion)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msgf("Chat v%s is quitting...", pkg.AppVersion)

	quartz.Stop()
	server.Shutdown()
	grpcServer.Stop()
	services.CloseNotifier()
}
