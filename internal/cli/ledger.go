package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/uimigrate/pkg/ledger"
)

// ledgerCommand creates the ledger management command.
func (c *CLI) ledgerCommand() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect and manage the migration ledger",
	}
	cmd.PersistentFlags().StringVar(&path, "ledger", "", "ledger file (default from config: "+ledger.DefaultPath+")")

	cmd.AddCommand(c.ledgerStatusCommand(&path))
	cmd.AddCommand(c.ledgerShowCommand(&path))
	cmd.AddCommand(c.ledgerRetryCommand(&path))
	cmd.AddCommand(c.ledgerClearCommand(&path))
	return cmd
}

// withLedger opens the configured store, loads the ledger and calls fn.
func (c *CLI) withLedger(ctx context.Context, path string, fn func(ledger.Store, *ledger.Ledger) error) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	store, err := c.openLedgerStore(ctx, cfg, path)
	if err != nil {
		return err
	}
	defer store.Close()
	l, err := ledger.Open(ctx, store)
	if err != nil {
		return fmt.Errorf("open ledger %s: %w", store.Location(), err)
	}
	return fn(store, l)
}

func (c *CLI) ledgerStatusCommand(path *string) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withLedger(cmd.Context(), *path, func(store ledger.Store, l *ledger.Ledger) error {
				stats := l.Stats()
				if jsonOut {
					return printJSON(cmd.OutOrStdout(), stats)
				}
				printKeyValue("Run", l.RunID())
				printKeyValue("Ledger", store.Location())
				printStatistics(stats)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print JSON")
	return cmd
}

func (c *CLI) ledgerShowCommand(path *string) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "List units by disposition",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withLedger(cmd.Context(), *path, func(_ ledger.Store, l *ledger.Ledger) error {
				if jsonOut {
					return printJSON(cmd.OutOrStdout(), l.Snapshot())
				}
				processed, failed, skipped, queue := l.Processed(), l.Failed(), l.Skipped(), l.Queue()
				if len(processed)+len(failed)+len(skipped)+len(queue) == 0 {
					printInfo("Ledger is empty")
					return nil
				}
				if len(processed) > 0 {
					fmt.Println(StyleTitle.Render(fmt.Sprintf("Processed (%d)", len(processed))))
					for _, e := range processed {
						printUnitLine(e.Path, string(e.Status), fmt.Sprintf("%d deps", len(e.Dependencies)))
					}
				}
				if len(failed) > 0 {
					fmt.Println(StyleTitle.Render(fmt.Sprintf("Failed (%d)", len(failed))))
					for _, e := range failed {
						printUnitLine(e.Path, "failed", e.Reason)
					}
				}
				if len(skipped) > 0 {
					fmt.Println(StyleTitle.Render(fmt.Sprintf("Skipped (%d)", len(skipped))))
					for _, e := range skipped {
						printUnitLine(e.Path, "skipped", e.Reason)
					}
				}
				if len(queue) > 0 {
					fmt.Println(StyleTitle.Render(fmt.Sprintf("Queued (%d)", len(queue))))
					for _, p := range queue {
						printFile(displayPath(p))
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the full ledger document as JSON")
	return cmd
}

func (c *CLI) ledgerRetryCommand(path *string) *cobra.Command {
	var interactive bool
	cmd := &cobra.Command{
		Use:   "retry [file...]",
		Short: "Queue failed units for another attempt",
		Long: `Queue failed units for another attempt. Without arguments every failed
unit is queued; with -i a picker selects them. Run "uimigrate migrate" afterwards
to process the queue.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withLedger(cmd.Context(), *path, func(store ledger.Store, l *ledger.Ledger) error {
				failed := l.Failed()
				if len(failed) == 0 {
					printSuccess("No failed units")
					return nil
				}
				targets := args
				if interactive {
					picked, err := pickFailed(failed)
					if err != nil {
						return err
					}
					if len(picked) == 0 {
						printInfo("Nothing selected")
						return nil
					}
					targets = picked
				}
				n := l.RetryFailed(targets...)
				if err := ledger.Save(cmd.Context(), store, l); err != nil {
					return err
				}
				printSuccess("Queued %d failed units", n)
				printNextStep("Process the queue", "uimigrate migrate --out <dir>")
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "choose units interactively")
	return cmd
}

func (c *CLI) ledgerClearCommand(path *string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the saved ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			store, err := c.openLedgerStore(cmd.Context(), cfg, *path)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Delete(cmd.Context()); err != nil {
				return err
			}
			printSuccess("Ledger cleared")
			printDetail("Location: %s", store.Location())
			return nil
		},
	}
}

// printUnitLine prints a unit with its status and a dim note.
func printUnitLine(path, status, note string) {
	icon := styleIconSuccess.Render(iconSuccess)
	switch status {
	case string(ledger.StatusReviewNeeded):
		icon = styleIconWarning.Render(iconWarning)
	case "failed":
		icon = styleIconError.Render(iconError)
	case "skipped":
		icon = StyleDim.Render(iconSkipped)
	}
	fmt.Println("  " + icon + " " + StyleValue.Render(displayPath(path)) + " " + StyleDim.Render(truncate(note, 80)))
}
