package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/nhle/newsreader/internal/cache"
	"github.com/nhle/newsreader/internal/credential"
	"github.com/nhle/newsreader/internal/model"
	"github.com/nhle/newsreader/internal/setup"
	"github.com/nhle/newsreader/internal/store"
	"github.com/nhle/newsreader/internal/ui/config"
)

func registerConfigure(app *cli.App) {
	app.Commands = append(app.Commands, &cli.Command{
		Name:   "configure",
		Usage:  "Set up the remote account and cache",
		Action: runConfigure,
	})
}

func registerCache(app *cli.App) {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "cache",
		Usage: "Manage the offline cache",
		Subcommands: []*cli.Command{
			{
				Name:   "clear",
				Usage:  "Drop every cached page, count and sender",
				Action: runCacheClear,
			},
		},
	})
}

func runConfigure(c *cli.Context) error {
	path := c.String("config")
	cfg, err := model.LoadConfig(path)
	if err != nil {
		return err
	}

	values := config.NewValues(cfg)
	if err := config.NewForm(values).Run(); err != nil {
		return fmt.Errorf("running configure form: %w", err)
	}

	key := values.Apply(cfg)
	if values.Secret != "" {
		if err := credential.Set(key, values.Secret); err != nil {
			return err
		}
	}
	if err := model.SaveConfig(path, cfg); err != nil {
		return err
	}
	fmt.Printf("saved %s\n", path)
	return nil
}

func runCacheClear(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.Cache.Durable == "" || cfg.Cache.Durable == "none" {
		fmt.Println("no durable cache configured")
		return nil
	}

	durable, err := store.Open(cfg.Cache)
	if err != nil {
		return fmt.Errorf("opening cache store: %w", err)
	}
	defer durable.Close()

	cm := cache.NewManager(setup.CacheOptions(cfg.Cache, durable, log.StandardLogger(), nil)...)
	cm.InvalidateAll()
	fmt.Println("cache cleared")
	return nil
}
