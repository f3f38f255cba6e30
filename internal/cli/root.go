package cli

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pomstack/pkg/buildinfo"
	"github.com/matzehuels/pomstack/pkg/config"
	"github.com/matzehuels/pomstack/pkg/errors"
	"github.com/matzehuels/pomstack/pkg/pom"
	"github.com/matzehuels/pomstack/pkg/resolve"
)

// Execute runs the pomstack CLI. The context carries cancellation from
// signal handling in main.
func Execute(ctx context.Context) error {
	var (
		verbose    bool
		configPath string
	)

	root := &cobra.Command{
		Use:          "pomstack",
		Short:        "Pomstack resolves Maven-style descriptors into effective dependency models",
		Long:         `Pomstack downloads descriptor chains, merges dependency management across parents and imports, and computes the effective transitive dependency graph with nearest-wins conflict resolution.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(os.Stderr, level)))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "path to pomstack.toml")

	root.AddCommand(newResolveCmd(&configPath))
	root.AddCommand(newReposCmd(&configPath))
	root.AddCommand(newGraphCmd(&configPath))
	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newCacheCmd())

	return root.ExecuteContext(ctx)
}

func defaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "pomstack", "pomstack.toml")
	}
	return "pomstack.toml"
}

// buildResolver assembles a resolver from configuration plus per-command
// overrides. The returned cleanup closes the cache backend.
func buildResolver(ctx context.Context, configPath, settingsPath string, profiles []string) (*resolve.Resolver, func(), error) {
	logger := loggerFromContext(ctx)

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	byteCache, err := cfg.Cache.BuildCache(ctx)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := byteCache.Close(); err != nil {
			logger.Warn("closing cache", "error", err)
		}
	}

	downloader := resolve.NewHTTPDownloader(
		resolve.WithHTTPClient(&http.Client{Timeout: cfg.HTTP.Timeout.Duration()}),
		resolve.WithUserAgent(cfg.HTTP.UserAgent),
		resolve.WithMaxRetries(cfg.HTTP.MaxRetries),
		resolve.WithBaseDelay(cfg.HTTP.BaseDelay.Duration()),
		resolve.WithByteCache(byteCache, cfg.Cache.TTL.Duration()),
	)

	opts := []resolve.Option{resolve.WithLogger(logger)}

	if len(cfg.Repositories) > 0 {
		extra := make([]pom.Repository, len(cfg.Repositories))
		for i, repo := range cfg.Repositories {
			extra[i] = pom.Repository{ID: repo.ID, Name: repo.Name, URL: repo.URL}
		}
		opts = append(opts, resolve.WithExtraRepositories(extra...))
	}

	if settingsPath == "" {
		settingsPath = cfg.SettingsPath
	}
	if settingsPath != "" {
		settings, err := loadSettings(settingsPath)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		opts = append(opts, resolve.WithSettings(settings))
	}

	active := append([]string{}, cfg.ActiveProfiles...)
	active = append(active, profiles...)
	if len(active) > 0 {
		opts = append(opts, resolve.WithActiveProfiles(active...))
	}

	return resolve.New(downloader, opts...), cleanup, nil
}

func loadSettings(path string) (*pom.Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "reading settings %s", path)
	}
	return pom.ParseSettings(data)
}

// cacheDir returns the descriptor cache directory, creating it when absent.
func cacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, "pomstack")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}
