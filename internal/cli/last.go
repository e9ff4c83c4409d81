package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewLastCommand creates the last command
func NewLastCommand() *cobra.Command {
	var (
		stateFile string
		forget    bool
	)

	cmd := &cobra.Command{
		Use:   "last",
		Short: "Show the folders used by the previous comparison",
		Long: `Show the folders remembered from the previous comparison. They are used
by "compare" for any folder that is not given on the command line.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(stateFile)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if forget {
				if err := store.Clear(); err != nil {
					return fmt.Errorf("failed to clear last run: %w", err)
				}
				fmt.Fprintln(out, "Last run cleared.")
				return nil
			}

			last, err := store.Load()
			if err != nil {
				return err
			}
			if last == nil {
				fmt.Fprintln(out, "No previous comparison.")
				return nil
			}

			fmt.Fprintf(out, "Old:      %s\n", last.OldRoot)
			fmt.Fprintf(out, "New:      %s\n", last.NewRoot)
			fmt.Fprintf(out, "Results:  %s\n", last.ResultsRoot)
			if last.Status != "" {
				fmt.Fprintf(out, "Status:   %s\n", last.Status)
			}
			if !last.Finished.IsZero() {
				fmt.Fprintf(out, "Finished: %s\n", last.Finished.Local().Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&forget, "clear", false, "forget the previous folders")
	cmd.Flags().StringVar(&stateFile, "state-file", "", "last-run state file (default under $XDG_STATE_HOME)")
	cmd.Flags().MarkHidden("state-file")

	return cmd
}
