package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/nowledge/nm/internal"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	ctx := context.Background()

	app := newApp()
	rootCmd := NewRootCmd(version, app)
	if err := fang.Execute(ctx, rootCmd); err != nil {
		os.Exit(1)
	}
}

type app struct {
	locator *internal.Locator
}

func newApp() *app {
	return &app{locator: internal.NewLocator()}
}

// connect resolves the configuration with the given flag overrides and
// returns an API client for it.
func (a *app) connect(o internal.Overrides) (*internal.Config, *internal.Client, error) {
	cfg, err := internal.LoadConfig(o)
	if err != nil {
		return nil, nil, err
	}
	return cfg, internal.NewClient(cfg), nil
}
