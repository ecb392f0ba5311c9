package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tingxie/internal/audio"
	"tingxie/internal/service"
)

func newAudioCommand(ctx *commandContext) *cobra.Command {
	audioCmd := &cobra.Command{
		Use:   "audio",
		Short: "Manage cached pronunciation clips",
	}

	audioCmd.AddCommand(&cobra.Command{
		Use:   "generate",
		Short: "Download missing clips and remove unused ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLists(true, func(lists *service.ListService) error {
				generated, failed, err := lists.GenerateMissingAudio(cmd.Context())
				if err != nil {
					return err
				}
				removed, err := lists.CleanupOrphanedAudioFiles()
				if err != nil {
					return err
				}

				cfg := ctx.configValue()
				effects := audio.NewEffectLibrary(cfg.AudioPath, cfg.EffectCorrectURL, cfg.EffectWrongURL)
				if err := effects.Ensure(cmd.Context()); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to download sound effects: %v\n", err)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%d generated, %d failed, %d removed\n", generated, failed, removed)
				return nil
			})
		},
	})

	return audioCmd
}
