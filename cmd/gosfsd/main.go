package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/gosfs/server/internal/catalog"
	"github.com/gosfs/server/internal/config"
	"github.com/gosfs/server/internal/gosfs/vfs"
	"github.com/gosfs/server/internal/handler"
	"github.com/gosfs/server/internal/middleware"
	"github.com/gosfs/server/internal/service"
	"github.com/gosfs/server/pkg/database/postgresql"
	"github.com/gosfs/server/pkg/logging"
	"github.com/gosfs/server/pkg/logging/slogext"
	"github.com/gosfs/server/pkg/logging/slogpretty"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

const configPath = "configs/config.yaml"

func main() {
	cfg := config.MustLoad(configPath)

	logger := setupLogger(cfg.App.Pretty)

	// Root context
	ctx := context.Background()
	ctx = logging.MakeContextWithLogger(ctx, logger)

	db := postgresql.MustNewClient(ctx, cfg.Database)

	catalogRepo := catalog.NewRepository(db)
	if err := catalogRepo.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure catalog schema", slogext.Err(err))
		os.Exit(1)
	}

	fs := vfs.New()

	if cfg.Volume.AutoFormat {
		if _, statErr := os.Stat(cfg.Volume.DevicePath); os.IsNotExist(statErr) {
			logger.Info("formatting new volume", slog.String("device", cfg.Volume.DevicePath))
			if err := vfs.Format(cfg.Volume.DevicePath, cfg.Volume.FormatBlocks); err != nil {
				logger.Error("failed to format volume", slogext.Err(err))
				os.Exit(1)
			}
			if err := catalogRepo.Register(ctx, cfg.Volume.MountID, cfg.Volume.DevicePath, cfg.Volume.FormatBlocks); err != nil {
				logger.Error("failed to register volume", slogext.Err(err))
				os.Exit(1)
			}
		}
	}

	if err := fs.Mount(cfg.Volume.MountID, cfg.Volume.DevicePath); err != nil {
		logger.Error("failed to mount volume", slogext.Err(err))
		os.Exit(1)
	}
	logger.Info("volume mounted", slog.String("mount_id", cfg.Volume.MountID), slog.String("device", cfg.Volume.DevicePath))

	fsService := service.NewFileSystemService(fs, catalogRepo)
	h := handler.NewHandler(fsService)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	addr := fmt.Sprintf(":%d", cfg.App.Port)
	logger.Info("starting gosfs server", slog.String("addr", addr))

	var rootHandler http.Handler = mux
	rootHandler = middleware.RequestIDMiddleware(rootHandler)

	if err := http.ListenAndServe(addr, rootHandler); err != nil {
		logger.Error("server stopped", slogext.Err(err))
		os.Exit(1)
	}
}

func setupLogger(pretty bool) *slog.Logger {
	if !pretty {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	out := os.Stdout
	var w io.Writer = out
	if isatty.IsTerminal(out.Fd()) {
		w = colorable.NewColorable(out)
	}

	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	return slog.New(opts.NewPrettyHandler(w))
}
