package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"text/tabwriter"

	"github.com/okian/alie/internal/domain/scoring"
	"github.com/okian/alie/models"
	"github.com/okian/alie/pkg/logger"

	"github.com/spf13/cobra"
)

var errModelsNotReady = errors.New("models not ready")

func newModelsCmd() *cobra.Command {
	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "Inspect model artifacts",
	}
	modelsCmd.AddCommand(&cobra.Command{
		Use:   "verify",
		Short: "Load the configured artifacts and report readiness",
		RunE:  runModelsVerify,
	})
	return modelsCmd
}

func runModelsVerify(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var fsys fs.FS = models.FS
	source := "embedded"
	if cfg.ModelsDir != "" {
		fsys, source = os.DirFS(cfg.ModelsDir), cfg.ModelsDir
	}

	reg := scoring.Load(cmd.Context(), fsys, scoring.WithLogger(logger.Named("scoring")))
	if !reg.Ready() {
		cmd.PrintErrf("models from %s are not usable: %v\n", source, reg.Err())
		return fmt.Errorf("%w: %w", errModelsNotReady, reg.Err())
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ROLE\tNAME\tKIND\tVERSION\n")
	for _, m := range reg.Info() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.Role, m.Name, m.Kind, m.Version)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "models from %s are ready\n", source)
	return nil
}
