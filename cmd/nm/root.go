package main

import (
	"github.com/spf13/cobra"
)

func NewRootCmd(version string, a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "nm",
		Short:         "Nowledge Mem command line client",
		Long:          `Manage memories, search the knowledge base, and persist assistant sessions to Nowledge Mem.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	if a != nil {
		addSubcommands(rootCmd, a)
	}

	return rootCmd
}

func addSubcommands(root *cobra.Command, a *app) {
	root.AddCommand(
		NewAddCmd(a),
		NewSearchCmd(a),
		NewExpandCmd(a),
		NewUpdateCmd(a),
		NewDeleteCmd(a),
		NewLabelsCmd(a),
		NewPersistCmd(a),
		NewDiagnoseCmd(a),
	)
}
