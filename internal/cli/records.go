package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parfit-dev/parfit/internal/store"
)

func newRecordsCmd() *cobra.Command {
	var path string
	var runID string
	var limit int

	cmd := &cobra.Command{
		Use:   "records",
		Short: "Stream persisted run records as JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			sink, err := store.OpenBadger(store.BadgerConfig{Path: path})
			if err != nil {
				return err
			}
			defer func() { _ = sink.Close() }()

			printed := 0
			visit := func(rec *store.Record) error {
				if limit > 0 && printed >= limit {
					return errLimitReached
				}
				line, err := json.Marshal(rec)
				if err != nil {
					return err
				}
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), string(line)); err != nil {
					return err
				}
				printed++
				return nil
			}

			if runID != "" {
				err = sink.StreamRun(runID, visit)
			} else {
				err = sink.Stream(visit)
			}
			if err == errLimitReached {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "record store directory")
	cmd.Flags().StringVar(&runID, "run", "", "only records for this run ID")
	cmd.Flags().IntVar(&limit, "limit", 0, "stop after N records (0 = all)")
	_ = cmd.MarkFlagRequired("path")

	return cmd
}

var errLimitReached = fmt.Errorf("record limit reached")
