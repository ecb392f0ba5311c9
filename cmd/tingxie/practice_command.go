package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"tingxie/internal/audio"
	"tingxie/internal/drill"
	"tingxie/internal/service"
)

const practiceHelp = "指令：:p 再聽一次  :s 跳過  :stats 成績  :q 結束"

const skipNotice = "⏭️ 已跳過"

func newPracticeCommand(ctx *commandContext) *cobra.Command {
	var listName string
	var filePath string
	var noAudio bool

	cmd := &cobra.Command{
		Use:   "practice",
		Short: "Run a dictation drill in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if listName != "" && filePath != "" {
				return errors.New("use either --list or --file, not both")
			}

			name, bank, err := loadPracticeBank(cmd.Context(), ctx, listName, filePath)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			opts := []drill.Option{
				drill.WithNotifier(drill.NotifierFunc(func(msg string) {
					fmt.Fprintln(out, msg)
				})),
				drill.WithLogger(log.New(cmd.ErrOrStderr(), "", log.LstdFlags)),
			}

			speak := !noAudio
			if speak {
				cfg := ctx.configValue()
				effects := audio.NewEffectLibrary(cfg.AudioPath, cfg.EffectCorrectURL, cfg.EffectWrongURL)
				player := audio.NewCommandPlayer(cfg.AudioPlayer, ctx.ttsService(), effects, cfg.WrongEffectLimit)
				defer player.Close()
				if !player.Available() {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s（找不到播放程式 %s）\n", drill.MsgSpeechUnavailable, cfg.AudioPlayer)
					speak = false
				} else {
					opts = append(opts, drill.WithSpeaker(player), drill.WithEffects(player))
				}
			}

			session := drill.NewSession(bank, opts...)
			fmt.Fprintf(out, "詞語表：%s（%d 個詞語）\n%s\n\n", name, bank.Size(), practiceHelp)
			return runPractice(runCtx, cmd.InOrStdin(), out, session, practiceOptions{
				speak:    speak,
				colorize: shouldColorize(out),
			})
		},
	}

	cmd.Flags().StringVarP(&listName, "list", "l", "", "Stored word list to practice (default list when empty)")
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "TOML word list file to practice without storing it")
	cmd.Flags().BoolVar(&noAudio, "no-audio", false, "Do not play pronunciations or sound effects")
	return cmd
}

func loadPracticeBank(ctx context.Context, cmdCtx *commandContext, listName, filePath string) (string, *drill.WordBank, error) {
	if filePath != "" {
		f, err := os.Open(filePath)
		if err != nil {
			return "", nil, fmt.Errorf("open list file: %w", err)
		}
		defer f.Close()

		file, err := service.NewListService(nil, nil, "", cmdCtx.configValue().TTSLanguage).ParseListFile(f)
		if err != nil {
			return "", nil, err
		}
		bank, err := drill.NewWordBank(file.Words)
		if err != nil {
			return "", nil, err
		}
		return file.Name, bank, nil
	}

	var name string
	var bank *drill.WordBank
	err := cmdCtx.withLists(false, func(lists *service.ListService) error {
		if err := lists.SeedDefaultLists(ctx); err != nil {
			return err
		}
		b, list, err := lists.LoadWordBank(listName)
		if err != nil {
			return err
		}
		name, bank = list.Name, b
		return nil
	})
	if errors.Is(err, service.ErrListNotFound) {
		return "", nil, fmt.Errorf("word list %q not found; see `tingxie lists`", listName)
	}
	return name, bank, err
}

type practiceOptions struct {
	speak    bool
	colorize bool
}

// runPractice drives session from line input until :q, end of input or ctx
// is cancelled, then prints the final statistics
func runPractice(ctx context.Context, in io.Reader, out io.Writer, session *drill.Session, opts practiceOptions) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	finish := func() error {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderStats(session.Snapshot()))
		return nil
	}

	announce := true
	for {
		if announce {
			fmt.Fprintln(out, renderQuestionHeader(session.Snapshot(), opts.colorize))
			if opts.speak {
				session.Speak(ctx)
			}
			announce = false
		}
		fmt.Fprint(out, "> ")

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return finish()
		case line, ok = <-lines:
			if !ok {
				return finish()
			}
		}

		switch strings.TrimSpace(line) {
		case ":q":
			return finish()
		case ":p":
			if opts.speak {
				session.Speak(ctx)
			} else {
				fmt.Fprintln(out, drill.MsgSpeechUnavailable)
			}
		case ":stats":
			fmt.Fprintln(out, renderStats(session.Snapshot()))
		case ":s":
			fmt.Fprintln(out, skipNotice)
			session.Skip()
			fmt.Fprintln(out)
			announce = true
		default:
			eval := session.SubmitAnswer(ctx, line)
			for _, l := range renderVerdict(eval, opts.colorize) {
				fmt.Fprintln(out, l)
			}
			session.Next()
			fmt.Fprintln(out)
			announce = true
		}
	}
}
