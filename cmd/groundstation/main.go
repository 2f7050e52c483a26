// Ground station bridge: terminates satellite WebSocket sessions, converts
// captured audio to text via the STT service, forwards requests over MQTT,
// and routes backend responses back as synthesized speech.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/grvsrs/groundstation/pkg/api"
	"github.com/grvsrs/groundstation/pkg/broker"
	"github.com/grvsrs/groundstation/pkg/config"
	"github.com/grvsrs/groundstation/pkg/logger"
	"github.com/grvsrs/groundstation/pkg/router"
	"github.com/grvsrs/groundstation/pkg/session"
	"github.com/grvsrs/groundstation/pkg/speech"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "ground station:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger.SetLevel(cfg.LogLevel)

	registry := session.NewRegistry()
	rtr := router.New(registry, cfg.BroadcastTopic)

	dialer := broker.NewPahoDialer(cfg.MQTTServerHost, cfg.MQTTServerPort, cfg.ClientID)
	manager := broker.NewManager(
		dialer,
		cfg.ReconnectInitialDelay(),
		cfg.ReconnectMaxDelay(),
		rtr.Route,
		func() {
			registry.CloseAll(session.CloseUpstreamLost, "upstream unavailable")
		},
	)
	// Recorded in the subscription set now, subscribed on first connect.
	_ = manager.Subscribe(cfg.BroadcastTopic)

	transcriber := speech.NewHTTPTranscriber(cfg.SpeechTranscriptionAPI, cfg.SpeechTranscriptionAPIToken)
	synthesizer := speech.NewHTTPSynthesizer(cfg.SpeechSynthesisAPI, cfg.SpeechSynthesisAPIToken)

	sessions := session.NewHandler(
		registry,
		manager,
		transcriber,
		synthesizer,
		cfg.InputTopic(),
		cfg.MaxBufferSize,
		cfg.MaxCommandInputSeconds,
	)

	server := api.NewServer(cfg, registry, manager, sessions)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go manager.Run(ctx)
	if err := server.Start(ctx); err != nil {
		return err
	}

	logger.InfoCF("main", "Ground station running", map[string]interface{}{
		"broadcast_topic": cfg.BroadcastTopic,
		"input_topic":     cfg.InputTopic(),
		"mqtt":            fmt.Sprintf("%s:%d", cfg.MQTTServerHost, cfg.MQTTServerPort),
	})

	<-ctx.Done()
	logger.InfoC("main", "Shutting down")
	return server.Stop()
}

func loadConfig() (*config.Config, error) {
	path := os.Getenv("GROUND_STATION_CONFIG_PATH")
	if path == "" {
		path = "local_config.yaml"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.WarnCF("main", "Config file not found, using defaults", map[string]interface{}{
			"path": path,
		})
		return config.LoadDefault()
	}
	return config.Load(path)
}
