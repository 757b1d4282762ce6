package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "timeclock",
		Short:         "Timeclock rules and overtime engine",
		Long:          `Clock-in/out sessions, approval workflow, overtime totals and missed-punch alerts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newMissedPunchesCmd())
	return root
}
