package main

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/nhle/newsreader/internal/app"
	"github.com/nhle/newsreader/internal/model"
	"github.com/nhle/newsreader/internal/sync"
)

func registerTUI(cliApp *cli.App) {
	cliApp.Commands = append(cliApp.Commands, &cli.Command{
		Name:   "tui",
		Usage:  "Open the interactive reader (default)",
		Action: runTUI,
	})
}

func runTUI(c *cli.Context) error {
	// The terminal belongs to the UI, so logs and spans go to a file.
	logPath := filepath.Join(model.ConfigDir(), "newsreader.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()
	log.SetOutput(logFile)

	rt, err := start(c, logFile)
	if err != nil {
		return err
	}
	defer rt.Close()

	startView, err := model.ParseView(rt.Config.Display.DefaultView)
	if err != nil {
		startView = model.ViewUnread
	}

	interval := model.Seconds(rt.Config.Inbox.PollIntervalSec, 0)
	poller := sync.New(rt.Pipeline, interval, log.StandardLogger())
	defer poller.Stop()

	m := app.New(rt.Pipeline, rt.Cache, startView, log.StandardLogger()).WithPoller(poller)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("running reader: %w", err)
	}
	return nil
}
