package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sensorita-alert/internal/classifier"
	"sensorita-alert/internal/config"
	"sensorita-alert/internal/fetcher"
	"sensorita-alert/internal/logger"
	"sensorita-alert/internal/metrics"
	"sensorita-alert/internal/mqtt"
	"sensorita-alert/internal/notifier"
	"sensorita-alert/internal/service"
	"sensorita-alert/internal/store"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const serviceName = "sensorita-alert"

func main() {
	// 0. optional .env (credentials for local runs)
	envErr := godotenv.Load()

	// 1. config
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. logger
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, serviceName)
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	if envErr != nil && !os.IsNotExist(envErr) {
		log.Warn("Failed to read .env, using process environment", zap.Error(envErr))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. components
	cls, err := classifier.New(cfg.Alert.Timezone)
	if err != nil {
		log.Fatal("Failed to create classifier", zap.Error(err))
	}

	st, err := store.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open baseline store",
			zap.String("backend", cfg.State.Backend),
			zap.Error(err),
		)
	}
	defer st.Close()

	var publisher notifier.Publisher
	if cfg.MQTT.Broker != "" {
		mqttClient, err := mqtt.NewClient(&cfg.MQTT, log)
		if err != nil {
			log.Fatal("Failed to connect to MQTT broker", zap.Error(err))
		}
		defer mqttClient.Disconnect()
		publisher = mqttClient
	}

	mailer := notifier.NewSMTPMailer(notifier.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		Timeout:  cfg.Mail.Timeout,
	}, log)

	alertNotifier := notifier.NewNotifier(mailer, publisher, notifier.Options{
		From:         cfg.Mail.From,
		SiteID:       cfg.API.SiteID,
		AttachReport: cfg.Mail.AttachReport,
		Topic:        cfg.MQTT.Topic,
		QoS:          cfg.MQTT.QoS,
	}, log)

	measurementFetcher := fetcher.New(fetcher.Options{
		BaseURL:      cfg.API.BaseURL,
		SiteID:       cfg.API.SiteID,
		StartTimeAgo: cfg.API.StartTimeAgo,
		GetPhotos:    cfg.API.GetPhotos,
		Timeout:      cfg.API.Timeout,
	}, log)

	m := metrics.New()
	if cfg.Metrics.Addr != "" {
		srv := m.Serve(cfg.Metrics.Addr, log)
		defer func() {
			shCtx, shCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shCancel()
			_ = srv.Shutdown(shCtx)
		}()
	}

	monitor := service.NewMonitorService(
		config.NewRuntimeLoader(cfg.Alert.ConfigPath, log),
		measurementFetcher,
		cls,
		st,
		alertNotifier,
		m,
		log,
	)

	// 4. run until signalled or a cycle fails
	serviceErrChan := make(chan error, 1)
	go func() {
		serviceErrChan <- monitor.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down",
			zap.String("signal", sig.String()),
		)
		cancel()
		<-serviceErrChan
	case err := <-serviceErrChan:
		if err != nil {
			log.Fatal("Sensor monitor failed", zap.Error(err))
		}
	}

	log.Info("Sensor monitor exited")
}
