package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var dbFlag string

	ctx := newCommandContext(&dbFlag)

	rootCmd := &cobra.Command{
		Use:           "tingxie",
		Short:         "聽寫練習: vocabulary dictation drill",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "SQLite database path (overrides DB_PATH)")

	rootCmd.AddCommand(newPracticeCommand(ctx))
	rootCmd.AddCommand(newListsCommand(ctx))
	rootCmd.AddCommand(newImportCommand(ctx))
	rootCmd.AddCommand(newExportCommand(ctx))
	rootCmd.AddCommand(newDefaultCommand(ctx))
	rootCmd.AddCommand(newAudioCommand(ctx))
	rootCmd.AddCommand(newHashPasswordCommand())

	return rootCmd
}
