package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ObiAU/questradar/internal/config"
)

func targetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "targets",
		Short: "Manage Telegram notify targets",
	}
	cmd.AddCommand(targetsListCmd(), targetsAddCmd(), targetsRemoveCmd())
	return cmd
}

func targetsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List Telegram targets",
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
			printTargets(cmd.OutOrStdout(), cfg)
			return nil
		},
	}
}

func targetsAddCmd() *cobra.Command {
	var (
		projects string
		disabled bool
	)
	cmd := &cobra.Command{
		Use:   "add <name> <bot-token> <chat-id>",
		Short: "Add a Telegram target",
		Long: `Add a Telegram target. The chat id is numeric (negative for groups) or a
public channel username starting with @. --projects limits the target to a
comma separated list of aliases; without it the target receives everything.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			t := config.Target{
				Name:     args[0],
				BotToken: args[1],
				ChatID:   args[2],
				Projects: config.SplitList(projects),
			}
			if disabled {
				enabled := false
				t.Enabled = &enabled
			}
			if err := store.Update(func(c *config.Config) error { return c.AddTarget(t) }); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added target %s\n", strings.TrimSpace(t.Name))
			return nil
		},
	}
	cmd.Flags().StringVar(&projects, "projects", "", "Comma separated aliases this target accepts")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Add the target disabled")
	return cmd
}

func targetsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <index>",
		Short: "Remove the target at the listed index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			var removed config.Target
			if err := store.Update(func(c *config.Config) error {
				removed, err = c.RemoveTarget(index)
				return err
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed target %s\n", removed.Name)
			return nil
		},
	}
}

func printTargets(w io.Writer, cfg *config.Config) {
	if len(cfg.NotifyTargets) == 0 {
		if legacy := cfg.TelegramTargets(); len(legacy) > 0 {
			fmt.Fprintf(w, "No targets; using legacy telegram_chat_id %s\n", legacy[0].ChatID)
			return
		}
		fmt.Fprintln(w, "No Telegram targets configured.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tCHAT\tTOKEN\tENABLED\tPROJECTS")
	for i, t := range cfg.NotifyTargets {
		scope := "all"
		if len(t.Projects) > 0 {
			scope = strings.Join(t.Projects, ",")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\t%s\n", i+1, t.Name, t.ChatID, maskToken(t.BotToken), t.IsEnabled(), scope)
	}
	_ = tw.Flush()
}

// maskToken keeps the bot id prefix and hides the secret part.
func maskToken(token string) string {
	if id, _, ok := strings.Cut(token, ":"); ok {
		return id + ":***"
	}
	if token == "" {
		return ""
	}
	return "***"
}
