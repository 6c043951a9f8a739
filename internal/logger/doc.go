// Package logger provides component-scoped structured logging for mangadl.
//
// Features:
//   - Levels TRACE, DEBUG, INFO, WARN, ERROR
//   - Per-component enable switches
//   - Text, JSON and ANSI color output
//   - Configuration from JSON/YAML files and MANGADL_LOG_* variables
//
// Usage:
//
//	log := logger.WithComponent(logger.ComponentChapterJS)
//	log.Debug("script deobfuscated", map[string]interface{}{
//		"url":   scriptURL,
//		"bytes": len(script),
//	})
//
//	cfg := logger.EnvironmentConfig(nil)
//	l, err := logger.CreateLoggerFromConfig(cfg)
//	if err == nil {
//		logger.SetGlobalLogger(l)
//	}
//
// Components:
//   - app: CLI and resolver lifecycle
//   - reader: chapter page scraping
//   - chapterjs: script loading, deobfuscation and key resolution
//   - imagelist: payload decryption and list unscrambling
//   - jsvm: snippet evaluation
//   - client: HTTP requests and retries
//   - tiles: image reassembly
//   - downloader: page downloads
package logger
