package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/deppfellow/aquaservice/internal/lib/utils"
	"github.com/deppfellow/aquaservice/internal/service"
	"github.com/spf13/cobra"
)

func newImportCmd() *cobra.Command {
	var geocode bool

	cmd := &cobra.Command{
		Use:   "import {clients|technicians} <file>",
		Short: "Import clients or technicians from a CSV, XLSX or XLS file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], args[1], geocode)
		},
	}
	cmd.Flags().BoolVar(&geocode, "geocode", false, "geocode every imported address")
	return cmd
}

func runImport(cmd *cobra.Command, kind, path string, geocode bool) error {
	if kind != "clients" && kind != "technicians" {
		return fmt.Errorf("unknown import kind %q, want clients or technicians", kind)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	var result *service.ImportResult
	if kind == "clients" {
		result, err = a.services.Import.ImportClients(cmd.Context(), f, filepath.Base(path), geocode)
	} else {
		result, err = a.services.Import.ImportTechnicians(cmd.Context(), f, filepath.Base(path), geocode)
	}
	if err != nil {
		return err
	}

	a.log.Info().
		Str("kind", kind).
		Int("created", result.Created).
		Int("errors", len(result.Errors)).
		Msg("import finished")

	return utils.PrintJSON(cmd.OutOrStdout(), result)
}
