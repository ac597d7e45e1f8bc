package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/urfave/cli/v2"

	"github.com/nhle/newsreader/internal/model"
	"github.com/nhle/newsreader/internal/theme"
)

func registerList(app *cli.App) {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "list",
		Usage: "Print a view of the inbox",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "view",
				Usage: "view to print (unread, read, all, favorites, read_later)",
				Value: string(model.ViewUnread),
			},
			&cli.BoolFlag{
				Name:  "all-pages",
				Usage: "keep fetching until the view is exhausted",
			},
		},
		Action: runList,
	})
}

func registerCounts(app *cli.App) {
	app.Commands = append(app.Commands, &cli.Command{
		Name:   "counts",
		Usage:  "Print the unread, read and total counts",
		Action: runCounts,
	})
}

func registerSync(app *cli.App) {
	app.Commands = append(app.Commands, &cli.Command{
		Name:   "sync",
		Usage:  "Load every view to exhaustion, warming the cache",
		Action: runSync,
	})
}

func runList(c *cli.Context) error {
	view, err := model.ParseView(c.String("view"))
	if err != nil {
		return err
	}

	rt, err := start(c, os.Stderr)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := c.Context
	if _, err := rt.Pipeline.Activate(ctx, view); err != nil {
		return err
	}
	if c.Bool("all-pages") {
		if err := rt.Pipeline.WaitIdle(ctx, view); err != nil {
			return err
		}
	}

	snap := rt.Pipeline.Snapshot(view)
	fmt.Println(renderTable(snap.Items))
	if snap.HasMore {
		fmt.Fprintf(os.Stderr, "%d shown, more available (use --all-pages)\n", len(snap.Items))
	}
	return nil
}

func runCounts(c *cli.Context) error {
	rt, err := start(c, os.Stderr)
	if err != nil {
		return err
	}
	defer rt.Close()

	counts, err := rt.Pipeline.RefreshCounts(c.Context, true)
	if err != nil {
		return err
	}
	fmt.Printf("unread %d\nread   %d\ntotal  %d\n", counts.Unread, counts.Read, counts.Total)
	return nil
}

func runSync(c *cli.Context) error {
	rt, err := start(c, os.Stderr)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := c.Context
	for _, view := range model.Views {
		if _, err := rt.Pipeline.Activate(ctx, view); err != nil {
			return fmt.Errorf("syncing %s: %w", view, err)
		}
		if err := rt.Pipeline.WaitIdle(ctx, view); err != nil {
			return err
		}
		snap := rt.Pipeline.Snapshot(view)
		fmt.Printf("%-10s %d\n", view, len(snap.Items))
	}
	return nil
}

func renderTable(items []model.Email) string {
	rows := make([][]string, 0, len(items))
	for _, e := range items {
		marker := " "
		switch {
		case !e.Read:
			marker = "●"
		case e.Favorite:
			marker = "★"
		}
		received := ""
		if e.HasTimestamp() {
			received = e.ReceivedAt.Local().Format(time.DateTime)
		}
		rows = append(rows, []string{marker, received, e.NewsletterName, e.Subject})
	}

	return table.New().
		Border(lipgloss.HiddenBorder()).
		Headers("", "RECEIVED", "FROM", "SUBJECT").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return theme.DimmedStyle
			}
			return lipgloss.NewStyle()
		}).
		Rows(rows...).
		String()
}
