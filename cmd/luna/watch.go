package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
)

// watchDelay coalesces the burst of events an editor save produces.
const watchDelay = 150 * time.Millisecond

// watch runs file, then runs it again in a fresh interpreter every time a
// Luna file in its directory is written, until ctx is done.
func (c *cli) watch(ctx context.Context, file string, scriptArgs []string) int {
	abs, err := filepath.Abs(file)
	if err != nil {
		fmt.Fprintf(c.stderr, "watch: %v\n", err)
		return 1
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Fprintf(c.stderr, "watch: %v\n", err)
		return 1
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		fmt.Fprintf(c.stderr, "watch %s: %v\n", filepath.Dir(abs), err)
		return 1
	}

	rerun := make(chan struct{}, 1)
	debounced := debounce.New(watchDelay)
	trigger := func() {
		select {
		case rerun <- struct{}{}:
		default:
		}
	}

	code := c.runFile(abs, scriptArgs)
	c.logger.Info().Str("file", abs).Int("exit", code).Msg("watching for changes")
	for {
		select {
		case <-ctx.Done():
			return code
		case event, ok := <-watcher.Events:
			if !ok {
				return code
			}
			if !isModuleSource(event.Name) || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			c.logger.Debug().Str("event", event.String()).Msg("file changed")
			debounced(trigger)
		case err, ok := <-watcher.Errors:
			if !ok {
				return code
			}
			c.logger.Warn().Err(err).Msg("watcher error")
		case <-rerun:
			fmt.Fprintf(c.stderr, "--- change detected, re-running %s\n", file)
			code = c.runFile(abs, scriptArgs)
		}
	}
}

func isModuleSource(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".ln" || ext == ".lnx"
}
