package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	app "github.com/okian/alie/internal/app"
	"github.com/okian/alie/internal/domain/learner"

	"github.com/spf13/cobra"
)

func newScoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score <snapshot.json|->",
		Short: "Score one learner snapshot offline and print the prediction",
		Args:  cobra.ExactArgs(1),
		RunE:  runScore,
	}
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	raw, err := readInput(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}

	svc := app.New(serviceOptions(cfg)...)
	if err := svc.Start(cmd.Context()); err != nil {
		return err
	}
	defer svc.Stop()

	result, err := svc.PredictJSON(cmd.Context(), raw)
	if err != nil {
		var verr *learner.ValidationError
		if errors.As(err, &verr) {
			for _, v := range verr.Violations {
				cmd.PrintErrf("%s: %s (%s)\n", v.Field, v.Message, v.Constraint)
			}
		}
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return raw, nil
}
