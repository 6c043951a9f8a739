package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ytget/mangadl"
	"github.com/ytget/mangadl/client"
	"github.com/ytget/mangadl/internal/jsvm"
	"github.com/ytget/mangadl/internal/keycache"
	"github.com/ytget/mangadl/internal/logger"
)

// app carries flag values and the merged configuration between commands.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	flags Config
	cfg   *Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	def := DefaultConfig()

	root := &cobra.Command{
		Use:               "mangadl",
		Short:             "Resolve, descramble and download Mangago chapters",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML config file (default <user config dir>/mangadl/config.yaml)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	pf.StringVar(&a.logFormat, "log-format", "", "log format: text, json, color")
	pf.DurationVar(&a.flags.HTTPTimeout, "http-timeout", def.HTTPTimeout, "HTTP timeout (e.g., 30s, 1m)")
	pf.IntVar(&a.flags.Retries, "retries", def.Retries, "HTTP retries for transient errors")
	pf.StringVar(&a.flags.UserAgent, "ua", "", "override User-Agent header")
	pf.StringVar(&a.flags.Proxy, "proxy", "", "proxy URL (http/https/socks5)")
	pf.StringVar(&a.flags.Referer, "referer", def.Referer, "Referer sent with every request")
	pf.StringVar(&a.flags.Engine, "engine", def.Engine, "JavaScript engine for key resolution: otto or goja")
	pf.DurationVar(&a.flags.EvalTimeout, "eval-timeout", def.EvalTimeout, "time limit for one key evaluation")
	pf.IntVar(&a.flags.Workers, "workers", def.Workers, "keys resolved in parallel (1-8)")
	pf.StringVar(&a.flags.KeyCacheDir, "key-cache-dir", "", "persist resolved keys in this directory")

	root.AddCommand(
		a.pagesCmd(),
		a.downloadCmd(),
		a.descrambleCmd(),
		a.deobfuscateCmd(),
		a.configCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, path, err := loadConfig(a.configPath)
	if err != nil {
		return err
	}
	mergeFlags(cfg, &a.flags, cmd)
	a.cfg = cfg

	if err := setupLogging(cfg, a.logLevel, a.logFormat); err != nil {
		return err
	}
	if path != "" {
		logger.WithComponent(logger.ComponentApp).Debug("config loaded", map[string]interface{}{"path": path})
	}
	return nil
}

func (a *app) client() *client.Client {
	return client.NewWith(client.Config{
		Timeout:   a.cfg.HTTPTimeout,
		Retries:   a.cfg.Retries,
		UserAgent: a.cfg.UserAgent,
		ProxyURL:  a.cfg.Proxy,
		Referer:   a.cfg.Referer,
	})
}

func (a *app) resolver() (*mangadl.Resolver, error) {
	eval, err := jsvm.New(jsvm.Engine(a.cfg.Engine), jsvm.Options{})
	if err != nil {
		return nil, err
	}

	var cache keycache.Cache = keycache.NewMemoryCache()
	if a.cfg.KeyCacheDir != "" {
		fc, err := keycache.NewFileCache(a.cfg.KeyCacheDir)
		if err != nil {
			return nil, fmt.Errorf("key cache: %w", err)
		}
		cache = fc
	}

	return mangadl.New().
		WithClient(a.client()).
		WithEvaluator(eval).
		WithEvalTimeout(a.cfg.EvalTimeout).
		WithKeyCache(cache).
		WithConcurrency(a.cfg.Workers), nil
}
