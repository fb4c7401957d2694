package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/honeynil/hive"
)

// Values accepted by record --result.
const (
	ResultApplied = "applied"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

func (app *App) recordCmd() *cobra.Command {
	var (
		outcome   string
		duration  time.Duration
		checksum  string
		errorMsg  string
		appliedAt string
	)

	cmd := &cobra.Command{
		Use:   "record <id>",
		Short: "Record the result of applying a migration",
		Long: `Record the outcome of one apply attempt reported by deployment tooling.

When --checksum is omitted, the checksum of the migration file found under
--dir is stored, so later drift can be detected.

Examples:
  # Record a successful apply
  hive record auth_001 --result applied --duration 1.2s

  # Record a failure
  hive record billing_002 --result failed --error "relation invoices already exists"

  # Record a deliberate skip
  hive record core_003 --result skipped`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := args[0]

			result, err := buildResult(id, outcome, duration, checksum, errorMsg, appliedAt)
			if err != nil {
				return err
			}

			m, err := app.setupManager(ctx, true)
			if err != nil {
				return err
			}
			defer func() { _ = m.Close() }()

			out := cmd.OutOrStdout()
			if err := app.checkConfirmation(out, "record "+outcome+" for "+id); err != nil {
				return err
			}

			if result.Checksum == "" {
				records, err := m.Discover(ctx, app.config.Dir)
				if err != nil {
					return err
				}
				found := false
				for _, r := range records {
					if r.ID == id {
						result.Checksum = r.Checksum
						found = true
						break
					}
				}
				if !found {
					fmt.Fprintf(cmd.ErrOrStderr(), "⚠️  migration %s not found under %s; storing without checksum\n", id, app.config.Dir)
				}
			}

			if result.AppliedAt.IsZero() {
				result.AppliedAt = time.Now().UTC()
			}

			m.Tracker().Record(ctx, result)

			entries, err := m.Tracker().Entries(ctx)
			if err != nil {
				return fmt.Errorf("failed to verify recorded result: %w", err)
			}
			want := expectedStatus(outcome)
			if err := verifyRecorded(entries, result, want); err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Recorded %s as %s\n", id, want)
			return nil
		},
	}

	cmd.Flags().StringVar(&outcome, "result", "", "Outcome: applied, failed or skipped")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Execution time of the attempt (e.g. 350ms, 1.5s)")
	cmd.Flags().StringVar(&checksum, "checksum", "", "Checksum of the executed content (defaults to the file's)")
	cmd.Flags().StringVar(&errorMsg, "error", "", "Failure message (logged only)")
	cmd.Flags().StringVar(&appliedAt, "applied-at", "", "When the attempt finished, RFC 3339 (defaults to now)")
	_ = cmd.MarkFlagRequired("result")

	return cmd
}

// buildResult validates flags and converts them to a hive.Result.
func buildResult(id, outcome string, duration time.Duration, checksum, errorMsg, appliedAt string) (hive.Result, error) {
	result := hive.Result{
		ID:            id,
		ExecutionTime: duration,
		Checksum:      checksum,
		Error:         errorMsg,
	}

	switch outcome {
	case ResultApplied:
		result.Success = true
	case ResultFailed:
	case ResultSkipped:
		result.Skipped = true
	default:
		return result, fmt.Errorf("invalid --result %q (must be applied, failed or skipped)", outcome)
	}

	if duration < 0 {
		return result, fmt.Errorf("--duration must not be negative")
	}

	if appliedAt != "" {
		t, err := time.Parse(time.RFC3339, appliedAt)
		if err != nil {
			return result, fmt.Errorf("invalid --applied-at: %w", err)
		}
		result.AppliedAt = t
	}

	return result, nil
}

func expectedStatus(outcome string) hive.Status {
	switch outcome {
	case ResultApplied:
		return hive.StatusApplied
	case ResultSkipped:
		return hive.StatusSkipped
	default:
		return hive.StatusFailed
	}
}

// appliedAtTolerance covers stores that keep applied_at at second precision.
const appliedAtTolerance = time.Second

// verifyRecorded checks that the stored row for result.ID matches what was
// just written, including its checksum and timestamp, so a stale row from an
// earlier attempt is not mistaken for this one.
func verifyRecorded(entries []hive.StatusEntry, result hive.Result, want hive.Status) error {
	for _, e := range entries {
		if e.ID != result.ID {
			continue
		}
		switch {
		case e.Status != want,
			e.ExecutionTimeMs != result.ExecutionTime.Milliseconds(),
			e.Checksum != result.Checksum,
			e.AppliedAt == nil,
			absDuration(e.AppliedAt.Sub(result.AppliedAt)) > appliedAtTolerance:
			return fmt.Errorf("result for %s was not recorded: stored row does not match (see log output)", result.ID)
		}
		return nil
	}
	return fmt.Errorf("result for %s was not recorded (see log output)", result.ID)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
