package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/gcbaptista/go-shard-query/api"
	"github.com/gcbaptista/go-shard-query/config"
	"github.com/gcbaptista/go-shard-query/internal/engine"
	"github.com/gcbaptista/go-shard-query/mapping"
	"github.com/gcbaptista/go-shard-query/model"
	"github.com/gcbaptista/go-shard-query/services"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	addr          string
	settingsPath  string
	mappingPath   string
	documentsPath string
	actionWorkers int
	maxBodyBytes  int64
}

func serveOptionsFromFlags(cmd *cobra.Command) (serveOptions, error) {
	var opts serveOptions
	opts.addr, _ = cmd.Flags().GetString("addr")
	opts.settingsPath, _ = cmd.Flags().GetString("settings")
	opts.mappingPath, _ = cmd.Flags().GetString("mapping")
	opts.documentsPath, _ = cmd.Flags().GetString("documents")
	opts.actionWorkers, _ = cmd.Flags().GetInt("action-workers")
	opts.maxBodyBytes, _ = cmd.Flags().GetInt64("max-body-bytes")

	if opts.settingsPath == "" && (opts.mappingPath != "" || opts.documentsPath != "") {
		return serveOptions{}, fmt.Errorf("--mapping and --documents require --settings")
	}
	return opts, nil
}

func serve(ctx context.Context, logger *slog.Logger, opts serveOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	eng, err := engine.NewEngine(engine.Options{ActionWorkers: opts.actionWorkers, Logger: logger})
	if err != nil {
		return err
	}
	defer eng.Close()

	if opts.settingsPath != "" {
		name, err := loadIndex(eng, opts.settingsPath, opts.mappingPath, opts.documentsPath)
		if err != nil {
			return err
		}
		info, _ := eng.GetIndexInfo(name)
		logger.Info("startup index ready", "index", name, "documents", info.DocumentCount)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), api.RequestSizeLimitMiddleware(opts.maxBodyBytes), api.CORSMiddleware(), api.LoggingMiddleware(logger))
	api.SetupRoutes(router, eng, logger)

	srv := &http.Server{
		Addr:              opts.addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", opts.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

// loadIndex creates the index described by the given files and returns its name.
func loadIndex(eng *engine.Engine, settingsPath, mappingPath, documentsPath string) (string, error) {
	settings, err := config.LoadSettings(settingsPath)
	if err != nil {
		return "", err
	}

	var def *mapping.Definition
	if mappingPath != "" {
		if def, err = mapping.LoadDefinition(mappingPath); err != nil {
			return "", err
		}
	}
	if err := eng.CreateIndex(settings, def); err != nil {
		return "", fmt.Errorf("create index %q: %w", settings.Name, err)
	}

	if documentsPath != "" {
		var docs []model.Document
		if err := config.DecodeFile(documentsPath, &docs); err != nil {
			return "", err
		}
		if err := eng.AddDocuments(settings.Name, docs); err != nil {
			return "", fmt.Errorf("index documents into %q: %w", settings.Name, err)
		}
	}
	return settings.Name, nil
}

// validate compiles query against an empty index built from the given files
// and writes the result as JSON to out.
func validate(ctx context.Context, logger *slog.Logger, out io.Writer, settingsPath, mappingPath, query string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	raw, err := readQuery(query)
	if err != nil {
		return err
	}

	eng, err := engine.NewEngine(engine.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer eng.Close()

	name, err := loadIndex(eng, settingsPath, mappingPath, "")
	if err != nil {
		return err
	}

	result, err := eng.ValidateQuery(ctx, name, services.ValidateRequest{Query: raw})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}
	if !result.Valid {
		return fmt.Errorf("query is not valid on index %q", name)
	}
	return nil
}

// readQuery returns the inline query, or the contents of the file named after '@'.
func readQuery(query string) (json.RawMessage, error) {
	if path, ok := strings.CutPrefix(query, "@"); ok {
		data, err := os.ReadFile(path) // #nosec G304 -- path comes from the operator's command line
		if err != nil {
			return nil, fmt.Errorf("read query file: %w", err)
		}
		return data, nil
	}
	return json.RawMessage(query), nil
}
