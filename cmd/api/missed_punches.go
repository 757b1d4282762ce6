package main

import (
	"encoding/json"
	"fmt"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/config"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/logger"
	"github.com/spf13/cobra"
)

func newMissedPunchesCmd() *cobra.Command {
	var departments []string

	cmd := &cobra.Command{
		Use:   "missed-punches",
		Short: "Print open sessions older than the staleness bound as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log := logger.NewTo(cmd.ErrOrStderr(), cfg.App.Env, cfg.App.LogLevel)

			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.sessions.GetMissedPunches(cmd.Context(), departments)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		},
	}

	cmd.Flags().StringSliceVar(&departments, "department", nil, "restrict to department id (repeatable)")
	return cmd
}
