package main

import (
	"log"
	"net/http"

	"go.uber.org/zap"

	"widevine-keyproxy/internal/config"
	"widevine-keyproxy/internal/logger"
	"widevine-keyproxy/internal/origin"
	"widevine-keyproxy/internal/widevine"
)

func main() {
	cfg, err := config.Load()

	if err != nil {
		log.Fatal(err)
	}

	logs := logger.New(cfg.LogLevel)

	defer func() {
		_ = logs.Sync()
	}()

	srv, err := newServer(cfg, logs)

	if err != nil {
		logs.Fatal("init server", zap.Error(err))
	}

	logs.Info("widevine: key server configured",
		zap.String("url", cfg.KeyServerURL),
		zap.String("signer", cfg.Signer),
		zap.Bool("signed", cfg.Signs()),
	)

	logs.Info("listening", zap.String("port", cfg.Port))
	logs.Fatal("serve", zap.Error(http.ListenAndServe(":"+cfg.Port, srv.router())))
}

func newServer(cfg *config.Config, logs *zap.Logger) (*server, error) {
	opts := []widevine.Option{widevine.WithLogger(logs.Named("widevine"))}

	if cfg.Signs() {
		opts = append(opts, widevine.WithSigningKey(cfg.SignerKey, cfg.SignerIV))
	}

	keys, err := widevine.New(cfg.KeyServerURL, cfg.Signer, opts...)

	if err != nil {
		return nil, err
	}

	srv := &server{
		keys:   keys,
		tracks: cfg.Tracks,
		policy: cfg.Policy,
		logger: logs,
	}

	if cfg.OriginURL != "" {
		if srv.origin, err = origin.New(cfg.OriginURL, cfg.UserAgent, nil); err != nil {
			return nil, err
		}
	}

	return srv, nil
}
