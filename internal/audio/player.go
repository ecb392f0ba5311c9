package audio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"sync"
	"time"

	"tingxie/internal/drill"
)

// runFunc plays one file and blocks until playback ends or ctx is done
type runFunc func(ctx context.Context, binary, path string) error

func runCommand(ctx context.Context, binary, path string) error {
	return exec.CommandContext(ctx, binary, "-q", path).Run()
}

// CommandPlayer plays words and effects through an external command line
// player such as mpg123. It implements drill.Speaker and drill.EffectPlayer.
// Clips are downloaded on the playback goroutine, so callers never wait for
// the network.
type CommandPlayer struct {
	binary     string
	tts        *TTSService
	effects    *EffectLibrary
	wrongLimit time.Duration
	run        runFunc
	lookPath   func(string) (string, error)

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	cancelSpeech context.CancelFunc
	wg           sync.WaitGroup
}

// NewCommandPlayer creates a player. wrongLimit bounds how long the wrong
// answer effect may play; zero means no limit.
func NewCommandPlayer(binary string, tts *TTSService, effects *EffectLibrary, wrongLimit time.Duration) *CommandPlayer {
	ctx, cancel := context.WithCancel(context.Background())
	return &CommandPlayer{
		binary:     binary,
		tts:        tts,
		effects:    effects,
		wrongLimit: wrongLimit,
		run:        runCommand,
		lookPath:   exec.LookPath,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Available reports whether the player binary can be found
func (p *CommandPlayer) Available() bool {
	_, err := p.lookPath(p.binary)
	return err == nil
}

// Speak pronounces text, stopping any word still being spoken or downloaded
// first. Only drill.ErrSpeechUnavailable is reported to the caller.
func (p *CommandPlayer) Speak(_ context.Context, text string) error {
	if !p.Available() || p.tts == nil {
		return drill.ErrSpeechUnavailable
	}

	p.mu.Lock()
	if p.cancelSpeech != nil {
		p.cancelSpeech()
	}
	playCtx, cancel := context.WithCancel(p.ctx)
	p.cancelSpeech = cancel
	p.mu.Unlock()

	p.start(playCtx, cancel, 0, func(ctx context.Context) (string, error) {
		filename, err := p.tts.GenerateAudioFile(ctx, text)
		if err != nil {
			return "", fmt.Errorf("failed to prepare speech: %w", err)
		}
		return p.tts.AudioPath(filename), nil
	})
	return nil
}

// PlayEffect plays a feedback clip without waiting for it to finish
func (p *CommandPlayer) PlayEffect(_ context.Context, kind drill.Effect) error {
	if p.effects == nil {
		return nil
	}
	if !p.Available() {
		return drill.ErrSpeechUnavailable
	}

	var limit time.Duration
	if kind == drill.EffectWrong {
		limit = p.wrongLimit
	}

	playCtx, cancel := context.WithCancel(p.ctx)
	p.start(playCtx, cancel, limit, func(ctx context.Context) (string, error) {
		if err := p.effects.Ensure(ctx); err != nil {
			return "", err
		}
		return p.effects.Path(kind), nil
	})
	return nil
}

// start fetches the clip and plays it in the background. A clip whose context
// was cancelled while downloading is dropped. limit bounds playback only.
func (p *CommandPlayer) start(ctx context.Context, cancel context.CancelFunc, limit time.Duration, prepare func(context.Context) (string, error)) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer cancel()

		path, err := prepare(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Printf("Warning: %v", err)
			return
		}

		playCtx := ctx
		if limit > 0 {
			var stop context.CancelFunc
			playCtx, stop = context.WithTimeout(ctx, limit)
			defer stop()
		}

		err = p.run(playCtx, p.binary, path)
		if err != nil && playCtx.Err() == nil && !errors.Is(err, context.Canceled) {
			log.Printf("Warning: playback of %s failed: %v", path, err)
		}
	}()
}

// Stop interrupts the current word, if any
func (p *CommandPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancelSpeech != nil {
		p.cancelSpeech()
		p.cancelSpeech = nil
	}
}

// Close stops all playback and pending downloads and waits for every
// playback goroutine to exit
func (p *CommandPlayer) Close() {
	p.Stop()
	p.cancel()
	p.wg.Wait()
}
