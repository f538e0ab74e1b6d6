package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/deppfellow/aquaservice/internal/model"
	"github.com/deppfellow/aquaservice/internal/service"
	"github.com/deppfellow/aquaservice/internal/validation"
	"github.com/spf13/cobra"
)

// adminPasswordEnv lets scripts pass the password without a flag in the
// process list.
const adminPasswordEnv = "AQUASERVICE_ADMIN_PASSWORD"

func newCreateAdminCmd() *cobra.Command {
	var emailAddr, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv(adminPasswordEnv)
			}

			in := &service.CreateUserInput{Email: emailAddr, Password: password, Role: model.RoleAdmin}
			if err := in.Validate(); err != nil {
				if msg := validation.Describe(err); msg != "" {
					return errors.New(msg)
				}
				return err
			}

			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			user, err := a.services.Auth.CreateUser(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&emailAddr, "email", "", "admin email address")
	cmd.Flags().StringVar(&password, "password", "", "admin password (or set "+adminPasswordEnv+")")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
