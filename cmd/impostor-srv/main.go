package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/scythe504/impostor-backend/internal/config"
	"github.com/scythe504/impostor-backend/internal/llm"
	"github.com/scythe504/impostor-backend/internal/logging"
	"github.com/scythe504/impostor-backend/internal/registry"
	"github.com/scythe504/impostor-backend/internal/roster"
	"github.com/scythe504/impostor-backend/internal/server"
	"github.com/scythe504/impostor-backend/internal/store"
	"github.com/scythe504/impostor-backend/internal/words"
)

const shutdownTimeout = 10 * time.Second

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file")
	wordsFile := flag.String("words", "", "CSV word bank (category,word); the built-in bank when empty")
	warmup := flag.Bool("warmup", true, "load every catalog model before serving")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := realMain(ctx, *envFile, *wordsFile, *warmup); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func realMain(ctx context.Context, envFile, wordsFile string, warmup bool) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := logging.NewLogger(cfg.Debug)
	defer func() { _ = logger.Sync() }()
	ctx = logging.WithLogger(ctx, logger)

	bank := words.Default()
	if wordsFile != "" {
		f, err := os.Open(wordsFile)
		if err != nil {
			return fmt.Errorf("open word bank: %w", err)
		}
		bank, err = words.ReadCSV(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("read word bank: %w", err)
		}
	}

	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, cfg.Store.BoltPath)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer st.Close()

	provider, err := llm.New(cfg.LLM, logger.Named("llm"))
	if err != nil {
		return fmt.Errorf("llm provider: %w", err)
	}

	reg, err := registry.New(ctx, registry.Options{
		Timing:      cfg.Game,
		Provider:    provider,
		Store:       st,
		Words:       bank,
		ArchiveSize: cfg.Archive,
	})
	if err != nil {
		return fmt.Errorf("registry: %w", err)
	}

	srv := server.NewServer(cfg, reg, logger).HTTPServer()

	grp, gctx := errgroup.WithContext(ctx)

	grp.Go(func() error {
		logger.Infof("[Main] listening on %s (store=%s, llm=%s)", srv.Addr, cfg.Store.Driver, cfg.LLM.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	grp.Go(func() error {
		<-gctx.Done()
		logger.Infof("[Main] shutting down")
		reg.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if warmup {
		grp.Go(func() error {
			models := make([]string, 0, len(roster.Catalog))
			for _, m := range roster.Catalog {
				models = append(models, m.Model)
			}
			if err := provider.Warmup(gctx, models); err != nil {
				logger.Warnf("[Main] model warmup incomplete: %v", err)
			}
			return nil
		})
	}

	return grp.Wait()
}
