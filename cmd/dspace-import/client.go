package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/joho/godotenv"
	"github.com/kosarko/dspace-rest-import/pkg/dspace"
	"github.com/kosarko/dspace-rest-import/pkg/dspace/config"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// progressStep is how often upload progress is logged.
const progressStep = 8 << 20

// buildS3Source opens the S3 bitstream source; replaced in tests.
var buildS3Source = func(ctx context.Context, cfg *config.Config) (dspace.BitstreamSource, error) {
	src, err := cfg.BuildS3Source(ctx)
	if err != nil {
		return nil, err
	}
	return src, nil
}

// session is a logged in client with the settings it was built from.
type session struct {
	cfg    *config.Config
	repo   *dspace.Repository
	logger *slog.Logger
	fs     afero.Fs
	out    io.Writer
}

// newSessionFromFlags loads configuration the way the global flags say and builds a
// repository client. It does not log in.
func newSessionFromFlags(cmd *cobra.Command) (*session, error) {
	configFile, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")
	verbose, _ := cmd.Flags().GetBool("verbose")

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	opts := []config.Option{config.WithFile(configFile), config.WithEnv()}
	if verbose {
		opts = append(opts, config.WithLogLevel("debug"))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	fs := afero.NewOsFs()

	repo, err := cfg.BuildRepository(
		dspace.WithHooks(dspace.LogHooks(logger)),
		dspace.WithFs(fs),
		dspace.WithProgress(progressLogger(logger)),
	)
	if err != nil {
		return nil, err
	}

	return &session{cfg: cfg, repo: repo, logger: logger, fs: fs, out: cmd.OutOrStdout()}, nil
}

// run logs in, calls fn and logs out again. A failed logout is only logged.
func (s *session) run(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := s.repo.Login(ctx, s.cfg.Email, s.cfg.Password); err != nil {
		return err
	}
	defer func() {
		if err := s.repo.Logout(ctx); err != nil {
			s.logger.Warn("Logout failed", "err", err)
		}
	}()
	return fn(ctx)
}

func (s *session) printJSON(v any) error {
	enc := json.NewEncoder(s.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readMetadata reads a JSON array of {key, value, language} entries.
func (s *session) readMetadata(path string) ([]dspace.MetadataEntry, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}
	var entries []dspace.MetadataEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse metadata file %s: %w", path, err)
	}
	return entries, nil
}

func progressLogger(logger *slog.Logger) dspace.ProgressFunc {
	var mu sync.Mutex
	next := make(map[string]int64)
	return func(name string, sent int64) {
		mu.Lock()
		defer mu.Unlock()
		if sent < next[name] {
			return
		}
		next[name] = sent - sent%progressStep + progressStep
		logger.Debug("Uploading bitstream", "name", name, "bytes_sent", sent)
	}
}
