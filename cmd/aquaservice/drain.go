package main

import (
	"context"

	"github.com/deppfellow/aquaservice/internal/lib/utils"
	"github.com/spf13/cobra"
)

func newDrainEmailsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drain-emails",
		Short: "Send one batch of queued emails and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			result, err := a.services.Emails.Drain(cmd.Context())
			if err != nil {
				return err
			}
			return utils.PrintJSON(cmd.OutOrStdout(), result)
		},
	}
}
