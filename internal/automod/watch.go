package automod

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 250 * time.Millisecond

// Reload reads path and replaces the active rule set. Unlike LoadRuleSet, a
// read or parse failure keeps the current rules and is returned.
func (c *Checker) Reload(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	rules, err := ParseRuleSet(data, c.logger)
	if err != nil {
		return err
	}
	c.Replace(rules)
	return nil
}

// Watch reloads the rule file whenever it is written or recreated, until ctx
// is done. The parent directory is watched so editors that replace the file
// are picked up. If the watch cannot be set up, hot reload is disabled and
// the current rules keep serving.
func Watch(ctx context.Context, path string, checker *Checker, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	target := filepath.Clean(path)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("automod hot reload disabled", zap.String("path", target), zap.Error(err))
		return nil
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(target)); err != nil {
		logger.Error("automod hot reload disabled", zap.String("path", target), zap.Error(err))
		return nil
	}
	logger.Info("watching automod rules", zap.String("path", target))

	timer := time.NewTimer(reloadDebounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				timer.Reset(reloadDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("automod watcher error", zap.Error(err))
		case <-timer.C:
			if err := checker.Reload(target); err != nil {
				logger.Error("automod reload failed, keeping current rules", zap.String("path", target), zap.Error(err))
			}
		}
	}
}
