// Command onboard tracks volunteer onboarding requirements and keeps them
// synchronized with the upstream people service.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/onboard/internal/catalog"
	"github.com/dshills/onboard/internal/govern"
	"github.com/dshills/onboard/internal/plan"
	"github.com/dshills/onboard/internal/resolve"
	"github.com/dshills/onboard/internal/upstream"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

// EnvAPIURL names the environment variable holding the people service base URL.
const EnvAPIURL = "ONBOARD_API_URL"

// exitErr carries a numeric exit code through the cobra error path.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

// codeError returns an exitErr for the given code.
func codeError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

// rootFlags holds flags shared by every command.
type rootFlags struct {
	overrides string
	format    string
	verbose   bool
}

func main() {
	root := &cobra.Command{
		Use:     "onboard",
		Short:   "Track volunteer onboarding steps against the people service",
		Long:    "Onboard resolves which onboarding steps each volunteer team requires and synchronizes them as custom fields on the upstream people service.",
		Version: version,
	}

	var flags rootFlags
	pf := root.PersistentFlags()
	pf.StringVar(&flags.overrides, "overrides", "", "YAML file of team requirement overrides")
	pf.StringVar(&flags.format, "format", "text", "Output format: text or json")
	pf.BoolVar(&flags.verbose, "verbose", false, "Enable debug logging")

	root.AddCommand(
		newStepsCmd(&flags),
		newTeamCmd(&flags),
		newFieldsCmd(&flags),
		newSyncCmd(&flags),
		newRunCmd(&flags),
	)

	if err := root.Execute(); err != nil {
		var ee *exitErr
		if errors.As(err, &ee) {
			fmt.Fprintln(os.Stderr, "Error:", ee.msg)
			os.Exit(ee.code)
		}
		// cobra already printed the error
		os.Exit(1)
	}
}

// newLogger builds the process logger; debug level when verbose.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadCatalog builds the catalog and applies the overrides file when set.
func loadCatalog(flags *rootFlags, logger *slog.Logger) (*catalog.Catalog, error) {
	cat := catalog.New(catalog.WithLogger(logger))
	if flags.overrides != "" {
		if err := catalog.LoadOverridesInto(cat, flags.overrides); err != nil {
			return nil, err
		}
	}
	return cat, nil
}

// newUpstreamClient wires governor and client from the environment.
func newUpstreamClient(logger *slog.Logger, metrics *govern.Metrics) (*upstream.Client, *govern.Governor, error) {
	baseURL := os.Getenv(EnvAPIURL)
	if baseURL == "" {
		return nil, nil, fmt.Errorf("%s environment variable not set", EnvAPIURL)
	}
	gov := govern.New(govern.WithLogger(logger), govern.WithMetrics(metrics))
	client, err := upstream.NewClient(baseURL, gov, upstream.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return client, gov, nil
}

// validateFormat rejects unknown --format values.
func validateFormat(format string) error {
	switch format {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("--format must be text or json, got %q", format)
	}
}

// warnUnknownTeams logs any team key the catalog does not recognize. Unknown
// keys never fail resolution; the warning is boundary validation only.
func warnUnknownTeams(cat *catalog.Catalog, logger *slog.Logger, teams []string) {
	for _, t := range teams {
		if !cat.IsValidTeam(t) {
			logger.Warn("unknown team key ignored", "team", t)
		}
	}
}

func newStepsCmd(flags *rootFlags) *cobra.Command {
	var active, completed []string
	cmd := &cobra.Command{
		Use:   "steps",
		Short: "Resolve the required onboarding steps for a set of teams",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(flags.format); err != nil {
				return codeError(3, "invalid flags: %s", err)
			}
			logger := newLogger(flags.verbose)
			cat, err := loadCatalog(flags, logger)
			if err != nil {
				return codeError(3, "loading catalog: %s", err)
			}
			warnUnknownTeams(cat, logger, active)
			warnUnknownTeams(cat, logger, completed)

			steps := resolve.RequiredSteps(cat, active, completed)
			growth := resolve.RequiredGrowth(cat, active)
			return printSteps(cmd.OutOrStdout(), flags.format, steps, growth)
		},
	}
	cmd.Flags().StringSliceVar(&active, "active", nil, "Active team keys (comma separated or repeated)")
	cmd.Flags().StringSliceVar(&completed, "completed", nil, "Team keys whose onboarding is already complete")
	return cmd
}

// printSteps renders the resolved steps in the requested format.
func printSteps(w io.Writer, format string, steps resolve.Steps, growth resolve.GrowthSteps) error {
	if format == "json" {
		out := struct {
			Steps  resolve.Steps       `json:"steps"`
			Growth resolve.GrowthSteps `json:"growth"`
		}{steps, growth}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	var sb strings.Builder
	for _, f := range plan.Build(steps, growth) {
		fmt.Fprintf(&sb, "%s: %s\n", f.Name, f.Value)
	}
	if sb.Len() == 0 {
		sb.WriteString("no steps required\n")
	}
	_, err := w.Write([]byte(sb.String()))
	return err
}

func newTeamCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "team <name>",
		Short: "Validate a team key and show its requirement profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(flags.verbose)
			cat, err := loadCatalog(flags, logger)
			if err != nil {
				return codeError(3, "loading catalog: %s", err)
			}
			key := catalog.NormalizeKey(args[0])
			profile, ok := cat.Lookup(args[0])
			if !ok {
				return codeError(1, "unknown team %q (normalized %q); known teams: %s",
					args[0], key, strings.Join(cat.Teams(), ", "))
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Team    string          `json:"team"`
				Profile catalog.Profile `json:"profile"`
			}{key, profile})
		},
	}
}

func newFieldsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "fields <person-id>",
		Short: "Fetch a person's current field data from the people service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(flags.format); err != nil {
				return codeError(3, "invalid flags: %s", err)
			}
			logger := newLogger(flags.verbose)
			client, _, err := newUpstreamClient(logger, nil)
			if err != nil {
				return codeError(3, "%s", err)
			}

			snapshot, err := client.PersonFieldData(context.Background(), args[0])
			if err != nil {
				if upstream.IsNotFoundStatus(err) {
					return codeError(1, "person %s not found upstream", args[0])
				}
				return codeError(5, "fetching field data: %s", err)
			}
			return printFieldData(cmd, flags.format, snapshot)
		},
	}
}

// printFieldData renders a snapshot, resolving definition names where the
// snapshot includes them.
func printFieldData(cmd *cobra.Command, format string, snapshot *upstream.FieldData) error {
	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(snapshot)
	}
	names := make(map[string]string, len(snapshot.Definitions))
	for _, def := range snapshot.Definitions {
		names[def.ID] = def.Name
	}
	for _, d := range snapshot.Data {
		name := names[d.DefinitionID]
		if name == "" {
			name = d.DefinitionID
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", name, d.Value)
	}
	return nil
}

func newSyncCmd(flags *rootFlags) *cobra.Command {
	var active, completed []string
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "sync <person-id>",
		Short: "Upsert a person's required onboarding steps as upstream fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(flags.verbose)
			cat, err := loadCatalog(flags, logger)
			if err != nil {
				return codeError(3, "loading catalog: %s", err)
			}
			warnUnknownTeams(cat, logger, active)
			warnUnknownTeams(cat, logger, completed)

			client, gov, err := newUpstreamClient(logger, nil)
			if err != nil {
				return codeError(3, "%s", err)
			}

			steps := resolve.RequiredSteps(cat, active, completed)
			growth := resolve.RequiredGrowth(cat, active)
			fields := plan.Build(steps, growth)
			if len(fields) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no steps required; nothing to sync")
				return nil
			}

			ctx := context.Background()
			personID := args[0]

			if dryRun {
				snapshot, err := client.PersonFieldData(ctx, personID)
				if err != nil {
					return codeError(5, "fetching field data: %s", err)
				}
				diff := plan.Diff(snapshot, fields)
				if diff == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "up to date; no changes")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), diff)
				return nil
			}

			if err := plan.Apply(ctx, client, logger, personID, fields); err != nil {
				return codeError(5, "sync incomplete: %s", err)
			}
			budget := gov.Stats()
			logger.Info("sync complete",
				"person_id", personID,
				"fields", len(fields),
				"calls", budget.TotalCalls,
				"rate_limit_errors", budget.RateLimitErrors)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringSliceVar(&active, "active", nil, "Active team keys")
	f.StringSliceVar(&completed, "completed", nil, "Team keys whose onboarding is already complete")
	f.BoolVar(&dryRun, "dry-run", false, "Print the field changes as a diff without writing")
	return cmd
}
