// Copyright 2025 Magnus Pierre
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/magpierre/dsb-interpreter/internal/api"
	"github.com/magpierre/dsb-interpreter/internal/artifact"
	"github.com/magpierre/dsb-interpreter/internal/backend"
	"github.com/magpierre/dsb-interpreter/internal/config"
	"github.com/magpierre/dsb-interpreter/internal/platform/env"
	"github.com/magpierre/dsb-interpreter/internal/platform/httpserver"
	"github.com/magpierre/dsb-interpreter/internal/sandbox"
	"github.com/magpierre/dsb-interpreter/internal/service"
	"github.com/magpierre/dsb-interpreter/internal/session"
)

const serviceName = "interpreter"

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(env.String(config.EnvConfig, ""))
	if err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(2)
	}
	level.Set(cfg.LogLevel)

	engine, err := sandbox.New(sandbox.Options{
		Alias:   cfg.DatasetAlias,
		Timeout: cfg.EngineTimeout(),
		Logger:  logger,
	})
	if err != nil {
		logger.Error("invalid engine config", "error", err)
		os.Exit(2)
	}

	opts := service.Options{
		Engine:         engine,
		Classifier:     artifact.NewClassifier(logger),
		SharingTimeout: cfg.SharingTimeout,
		Logger:         logger,
	}
	if cfg.BackendURL != "" {
		opts.Backend = backend.New(cfg.BackendURL, cfg.BackendTimeout)
	} else {
		logger.Warn("no backend configured, code generation and transcription are disabled")
	}
	svc, err := service.New(opts)
	if err != nil {
		logger.Error("service unavailable", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", httpserver.Healthz(serviceName))
	mux.HandleFunc(
		"GET /readyz",
		httpserver.Readyz(
			serviceName,
			httpserver.ReadinessCheck{
				Name: "engine",
				Check: func(ctx context.Context) error {
					checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
					defer cancel()
					_, err := engine.Execute(checkCtx, "1 + 1", nil)
					return err
				},
			},
		),
	)

	api.New(logger, svc, session.NewStore(), cfg.UploadMaxBytes()).Register(mux)

	serverCfg := httpserver.Config{
		Service:         serviceName,
		Addr:            cfg.HTTPAddr,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}

	if err := httpserver.Run(ctx, logger, serverCfg, httpserver.Wrap(logger, serviceName, mux)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
