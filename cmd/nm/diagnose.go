package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nowledge/nm/internal"
	"github.com/spf13/cobra"
)

func NewDiagnoseCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Check configuration and API connectivity",
		Long:  `Run the config, health, auth, and search checks and report each result.`,
		Args:  cobra.NoArgs,
		RunE:  makeDiagnoseRunner(a),
	}

	cmd.Flags().StringP("project-path", "p", "", "Project directory to validate config against")
	cmd.Flags().Bool("json", false, "Output as JSON")
	return cmd
}

func makeDiagnoseRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		projectPath, _ := cmd.Flags().GetString("project-path")
		asJSON, _ := cmd.Flags().GetBool("json")

		svc := internal.NewDiagnoseService(
			func() (*internal.Config, error) {
				return internal.LoadConfig(internal.Overrides{ProjectPath: projectPath})
			},
			func(cfg *internal.Config) internal.DiagnoseClient {
				return internal.NewClient(cfg)
			},
		)
		report := svc.Run(cmd.Context())

		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
		} else {
			renderReport(cmd, report)
		}

		if report.Failed() {
			return errors.New("one or more checks failed")
		}
		return nil
	}
}

func renderReport(cmd *cobra.Command, report internal.Report) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "\n%s\n\n", styleBold.Render("Nowledge Mem diagnostics"))
	for _, check := range report.Checks {
		fmt.Fprintf(out, " %s %s", statusMark(check.Status), styleBold.Render(check.Name))
		if check.Detail != "" {
			fmt.Fprintf(out, ": %s", check.Detail)
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintln(out)

	if report.Failed() {
		fmt.Fprintln(out, styleFail.Render("Some checks failed."))
	} else {
		fmt.Fprintln(out, stylePass.Render("All checks passed."))
	}
}
