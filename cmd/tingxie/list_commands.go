package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tingxie/internal/service"
)

func newListsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "lists",
		Short: "Show stored word lists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLists(false, func(lists *service.ListService) error {
				if err := lists.SeedDefaultLists(cmd.Context()); err != nil {
					return err
				}
				all, err := lists.GetAllLists()
				if err != nil {
					return err
				}
				defaultList, err := lists.ResolveDefaultList()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderLists(all, defaultList))
				return nil
			})
		},
	}
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	var noAudio bool

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Store a TOML word list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLists(!noAudio, func(lists *service.ListService) error {
				list, err := lists.ImportListFile(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %q with %d words\n", list.List.Name, len(list.Words))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&noAudio, "no-audio", false, "Skip generating pronunciation clips")
	return cmd
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export NAME",
		Short: "Write a stored word list as TOML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLists(false, func(lists *service.ListService) error {
				if output == "" {
					return lists.ExportListFile(args[0], cmd.OutOrStdout())
				}

				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				if err := lists.ExportListFile(args[0], f); err != nil {
					f.Close()
					os.Remove(output)
					return err
				}
				return f.Close()
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

func newDefaultCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "default NAME",
		Short: "Choose the list practiced when none is given",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLists(false, func(lists *service.ListService) error {
				if err := lists.SetDefaultList(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Default list set to %q\n", args[0])
				return nil
			})
		},
	}
}
