// Package config holds the interactive form behind `newsreader configure`.
package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/nhle/newsreader/internal/credential"
	"github.com/nhle/newsreader/internal/model"
)

// Values are the fields edited by the form.
type Values struct {
	Kind     string
	BaseURL  string
	User     string
	Secret   string
	IMAPHost string
	IMAPPort string
	TLS      bool
	Durable  string
	View     string
}

// NewValues seeds the form from cfg. The secret is never pre-filled.
func NewValues(cfg *model.AppConfig) *Values {
	v := &Values{
		Kind:     cfg.Remote.Kind,
		BaseURL:  cfg.Remote.BaseURL,
		User:     cfg.Remote.User,
		IMAPHost: cfg.Remote.IMAPHost,
		IMAPPort: cfg.Remote.IMAPPort,
		TLS:      cfg.Remote.TLS,
		Durable:  cfg.Cache.Durable,
		View:     cfg.Display.DefaultView,
	}
	if v.Kind == "" {
		v.Kind = "api"
	}
	if v.IMAPPort == "" {
		v.IMAPPort = "993"
	}
	return v
}

// NewForm builds the configuration form over v.
func NewForm(v *Values) *huh.Form {
	views := make([]huh.Option[string], 0, len(model.Views))
	for _, view := range model.Views {
		views = append(views, huh.NewOption(string(view), string(view)))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Remote").
				Options(
					huh.NewOption("Newsletter service (HTTP API)", "api"),
					huh.NewOption("IMAP mailbox", "imap"),
				).
				Value(&v.Kind),
			huh.NewInput().
				Title("Username").
				Description("Account name, also used to key the stored secret").
				Placeholder("reader@example.com").
				Value(&v.User).
				Validate(validateRequired("Username")),
			huh.NewInput().
				Title("Secret").
				Description("API token or mailbox password; leave empty to keep the stored one").
				EchoMode(huh.EchoModePassword).
				Value(&v.Secret),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Base URL").
				Description("Newsletter service URL (e.g., https://news.example.com)").
				Placeholder("https://news.example.com").
				Value(&v.BaseURL).
				Validate(validateURL),
		).WithHideFunc(func() bool { return v.Kind != "api" }),
		huh.NewGroup(
			huh.NewInput().
				Title("IMAP Host").
				Placeholder("imap.example.com").
				Value(&v.IMAPHost).
				Validate(validateRequired("IMAP Host")),
			huh.NewInput().
				Title("IMAP Port").
				Placeholder("993").
				Value(&v.IMAPPort).
				Validate(validatePort),
			huh.NewConfirm().
				Title("Use TLS").
				Affirmative("Yes").
				Negative("No").
				Value(&v.TLS),
		).WithHideFunc(func() bool { return v.Kind != "imap" }),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Offline cache").
				Options(
					huh.NewOption("SQLite file", "sqlite"),
					huh.NewOption("Redis", "redis"),
					huh.NewOption("Memory only", "none"),
				).
				Value(&v.Durable),
			huh.NewSelect[string]().
				Title("Start in view").
				Options(views...).
				Value(&v.View),
		),
	)
}

// Apply copies v into cfg and returns the keyring key for the secret.
func (v *Values) Apply(cfg *model.AppConfig) string {
	cfg.Remote.Kind = v.Kind
	cfg.Remote.User = strings.TrimSpace(v.User)
	switch v.Kind {
	case "imap":
		cfg.Remote.IMAPHost = strings.TrimSpace(v.IMAPHost)
		cfg.Remote.IMAPPort = strings.TrimSpace(v.IMAPPort)
		cfg.Remote.TLS = v.TLS
	default:
		cfg.Remote.BaseURL = strings.TrimRight(strings.TrimSpace(v.BaseURL), "/")
	}
	if v.Durable != "" {
		cfg.Cache.Durable = v.Durable
	}
	if view, err := model.ParseView(v.View); err == nil {
		cfg.Display.DefaultView = string(view)
	}
	return credential.Key(cfg.Remote.Kind, cfg.Remote.User)
}

// --- Validators ---

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("URL is required")
	}
	parsed, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("URL must include scheme and host (e.g., https://example.com)")
	}
	return nil
}

func validatePort(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("port is required")
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("port must be a number between 1 and 65535")
	}
	return nil
}
