package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/ObiAU/questradar/internal/config"
	"github.com/ObiAU/questradar/internal/notify"
)

func notifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Configure and test notification delivery",
	}
	cmd.AddCommand(notifySetCmd(), notifyTestCmd())
	return cmd
}

func notifySetCmd() *cobra.Command {
	var webhook string
	cmd := &cobra.Command{
		Use:   "set <none|telegram|discord|both>",
		Short: "Set the notify method",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			if err := store.Update(func(c *config.Config) error {
				url := c.DiscordWebhookURL
				if cmd.Flags().Changed("discord-webhook") {
					url = webhook
				}
				return c.SetNotify(args[0], url)
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Notify method set to %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&webhook, "discord-webhook", "", "Discord webhook URL (empty clears it)")
	return cmd
}

var errNotifyDisabled = errors.New("notify_method is none, nothing sent")

func notifyTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Send a test notification over the configured transports",
		Long: `Sends a fixed test message over every transport the notify method selects.
It bypasses the notification gate and deduplication and reaches every enabled
Telegram target regardless of its project list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			cfg, err := store.Load()
			if err != nil {
				return err
			}
			if cfg.Method() == config.MethodNone {
				return errNotifyDisabled
			}
			logger, err := newLogger(cfg.LogLevel, "console")
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if err := newDispatcher(logger, cfg).Dispatch(cmd.Context(), notify.TestEvent()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Test notification sent via %s\n", cfg.Method())
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}
	cmd.AddCommand(configShowCmd())
	return cmd
}

func configShowCmd() *cobra.Command {
	var reveal bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration, environment overrides applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			cfg, err := store.Load()
			if err != nil {
				return err
			}
			data, err := json.Marshal(cfg)
			if err != nil {
				return err
			}
			if !reveal {
				if data, err = maskSecrets(data); err != nil {
					return err
				}
			}
			_, err = cmd.OutOrStdout().Write(pretty.Pretty(data))
			return err
		},
	}
	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print passwords and tokens unmasked")
	return cmd
}

// maskSecrets hides the dashboard password, bot tokens and the webhook URL.
func maskSecrets(data []byte) ([]byte, error) {
	paths := []string{"webui_password", "telegram_bot_token", "discord_webhook_url"}
	n := gjson.GetBytes(data, "notify_targets.#").Int()
	for i := int64(0); i < n; i++ {
		paths = append(paths, "notify_targets."+strconv.FormatInt(i, 10)+".bot_token")
	}

	var err error
	for _, path := range paths {
		if gjson.GetBytes(data, path).String() == "" {
			continue
		}
		if data, err = sjson.SetBytes(data, path, "***"); err != nil {
			return nil, err
		}
	}
	return data, nil
}

