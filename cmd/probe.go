package main

import (
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/ourabridge/internal/probe"
	"github.com/okian/ourabridge/pkg/logger"
)

// errProbeFailed is returned when a check fails so the exit code is non-zero.
var errProbeFailed = errors.New("probe failed")

var (
	probeURL     string
	probeTimeout time.Duration
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check that a running bridge serves a consistent snapshot.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := logger.Init(logger.WithOutput(os.Stderr)); err != nil {
			return err
		}
		report, err := probe.New(probeURL,
			probe.WithTimeout(probeTimeout),
			probe.WithLogger(logger.Get()),
		).Run(cmd.Context())
		if err != nil {
			return err
		}
		if err := printReport(cmd.OutOrStdout(), report); err != nil {
			return err
		}
		if !report.Passed() {
			return errProbeFailed
		}
		return nil
	},
}

func init() { //nolint:gochecknoinits // flag registration
	probeCmd.Flags().StringVar(&probeURL, "url", "http://localhost:9080", "base URL of the bridge")
	probeCmd.Flags().DurationVar(&probeTimeout, "timeout", 10*time.Second, "per-request timeout")
}
