// gptstream - A streaming chat client with incremental code-block detection.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/term"

	"github.com/jeranaias/gptstream/internal/cli"
	"github.com/jeranaias/gptstream/internal/config"
	"github.com/jeranaias/gptstream/internal/openai"
	"github.com/jeranaias/gptstream/internal/render"
	"github.com/jeranaias/gptstream/internal/segment"
	"github.com/jeranaias/gptstream/internal/session"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// HOT-SWAPPABLE TRANSPORT
// =============================================================================

// streamerHolder lets the config watcher replace the API client between
// turns without rebuilding the session controller.
type streamerHolder struct {
	mu     sync.RWMutex
	client *openai.Client
}

func (h *streamerHolder) StreamChat(ctx context.Context, messages []openai.ChatMessage, handler openai.ChunkHandler) error {
	h.mu.RLock()
	c := h.client
	h.mu.RUnlock()
	return c.StreamChat(ctx, messages, handler)
}

func (h *streamerHolder) Model() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.client.Model()
}

func (h *streamerHolder) set(c *openai.Client) {
	h.mu.Lock()
	h.client = c
	h.mu.Unlock()
}

// =============================================================================
// MAIN
// =============================================================================

func main() {
	var (
		modelFlag   = flag.String("model", "", "override the configured model")
		configFlag  = flag.String("config", "", "path to an alternate config file")
		noColorFlag = flag.Bool("no-color", false, "disable colored output")
		versionFlag = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *versionFlag {
		fmt.Printf("gptstream %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	if err := run(*modelFlag, *configFlag, *noColorFlag); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(modelOverride, configPath string, noColor bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if modelOverride != "" {
		cfg.Chat.Model = modelOverride
	}

	color := !noColor &&
		term.IsTerminal(int(os.Stdout.Fd())) &&
		render.SupportsColor()

	renderer := render.NewTerminal(render.Options{
		WordWrap:  cfg.UI.WordWrap,
		CodeStyle: cfg.UI.CodeStyle,
		Color:     color,
	})
	classifier := segment.NewClassifier(renderer)

	holder := &streamerHolder{client: openai.NewClient(clientConfig(cfg))}
	ctrl := session.NewController(holder, classifier)
	defer ctrl.Close()

	// Hot-reload: edits to the config file take effect on the next turn.
	// A -model override on the command line stays pinned.
	if watchPath := configFilePath(configPath); watchPath != "" {
		watcher, werr := config.NewWatcher(watchPath, 0, func(next *config.Config) {
			if modelOverride != "" {
				next.Chat.Model = modelOverride
			}
			holder.set(openai.NewClient(clientConfig(next)))
		})
		if werr == nil {
			if werr = watcher.Watch(); werr == nil {
				defer watcher.Close()
			}
		}
	}

	chat := cli.New(ctrl, cli.Options{
		Model:       holder.Model,
		HistoryFile: historyFilePath(cfg),
		Color:       color,
	})
	defer chat.Close()

	return chat.Run(context.Background())
}

// loadConfig loads the default or explicitly given configuration file.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

// configFilePath resolves the path the watcher should observe. Returns ""
// when no usable path exists.
func configFilePath(override string) string {
	if override != "" {
		return override
	}
	path, err := config.Path()
	if err != nil {
		return ""
	}
	return path
}

// historyFilePath resolves the REPL history location.
func historyFilePath(cfg *config.Config) string {
	if cfg.UI.HistoryFile != "" {
		return cfg.UI.HistoryFile
	}
	dir, err := config.Dir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "chat_history")
}

// clientConfig maps file configuration onto the API client configuration.
func clientConfig(cfg *config.Config) *openai.ClientConfig {
	return &openai.ClientConfig{
		BaseURL:           cfg.API.BaseURL,
		APIKey:            cfg.API.Key,
		Model:             cfg.Chat.Model,
		Temperature:       cfg.Chat.Temperature,
		MaxTokens:         cfg.Chat.MaxTokens,
		Stop:              cfg.Chat.Stop,
		StreamTimeout:     cfg.StreamTimeout(),
		RequestsPerMinute: cfg.API.RequestsPerMinute,
	}
}
