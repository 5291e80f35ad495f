package main

import (
	"os"
	"time"

	"ScriptToVideo-server/config"
	"ScriptToVideo-server/models"
	"ScriptToVideo-server/routers"
	"ScriptToVideo-server/routers/api"
	"ScriptToVideo-server/service"

	"github.com/rs/zerolog"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	config.InitConfig()
	logger.Info().Str("port", config.AppConfig.Server.Port).Msg("server starting")

	models.InitDB()
	store := models.NewStore(models.GormDB)

	uploader, err := service.NewMinioUploader(logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("minio init failed")
	}

	imageClient := service.NewImageClient(config.AppConfig.AI.ImageAPI, logger)
	speechClient := service.NewSpeechClient(config.AppConfig.AI.VoiceAPI, logger)
	videoClient := service.NewVideoClient(config.AppConfig.Worker.Addr, config.AppConfig.Server.CallbackURL, logger)

	pipeline := service.NewPipeline(
		store,
		imageClient,
		speechClient,
		videoClient,
		videoClient,
		videoClient,
		uploader,
		logger,
	)
	correlator := service.NewCorrelator(store, logger)
	queue := service.NewQueue(logger)
	defer queue.Close()

	processor := service.NewProcessor(pipeline, logger)
	processor.Start(5)

	h := api.NewHandler(store, pipeline, correlator, queue, videoClient, logger)
	r := routers.InitRouter(h)
	if err := r.Run(config.AppConfig.Server.Port); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
