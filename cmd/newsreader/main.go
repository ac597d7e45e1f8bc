package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/nhle/newsreader/internal/model"
)

func main() {
	app := cli.App{
		Name:  "newsreader",
		Usage: "a terminal reader for newsletter mailboxes",
		Description: `newsreader pages through a newsletter mailbox, caching pages,
counts and sender details so views open instantly and keep
working offline.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to the YAML config file",
				Value:   model.DefaultConfigPath(),
				EnvVars: []string{"NEWSREADER_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (trace, debug, info, warn, error)",
				Value: "info",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "shorthand for --log-level debug",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text, json)",
				Value: "text",
			},
			&cli.BoolFlag{
				Name:  "trace",
				Usage: "print inbox spans to the log output",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "serve cache metrics on this address (e.g., :9090)",
			},
		},
		Before: configureLogging,
		Action: runTUI,
	}

	registerTUI(&app)
	registerList(&app)
	registerCounts(&app)
	registerSync(&app)
	registerConfigure(&app)
	registerCache(&app)

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func configureLogging(c *cli.Context) error {
	if level, err := log.ParseLevel(c.String("log-level")); err == nil {
		log.SetLevel(level)
	}
	if c.Bool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	if c.String("log-format") == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	}
	return nil
}
