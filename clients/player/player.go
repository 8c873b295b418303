package player

import (
	"context"
	"errors"
	"os/exec"
	"slices"
	"sync"

	"voice-home-assistant/logger"
)

type playerImpl struct {
	command string
	args    []string
	log     *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type Config struct {
	// Command is the external player; each track ID is appended to Args.
	Command string
	Args    []string
	Logger  *logger.Logger
}

func New(cfg *Config) (API, error) {
	if cfg == nil {
		return nil, errors.New("missing parameter: cfg")
	}

	if cfg.Command == "" {
		return nil, errors.New("missing parameter: cfg.Command")
	}

	return &playerImpl{
		command: cfg.Command,
		args:    slices.Clone(cfg.Args),
		log:     logger.OrNop(cfg.Logger),
	}, nil
}

func (p *playerImpl) Play(ctx context.Context, tracks []string) error {
	if len(tracks) == 0 {
		return nil
	}

	p.Stop()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	p.mu.Lock()
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	defer func() {
		cancel()

		p.mu.Lock()
		if p.done == done {
			p.cancel = nil
			p.done = nil
		}
		p.mu.Unlock()

		close(done)
	}()

	for i, track := range tracks {
		if ctx.Err() != nil {
			p.log.Infow("playlist stopped", "track", i)
			return nil
		}

		p.log.Infow("playing track", "track", track, "position", i+1, "of", len(tracks))

		cmd := exec.CommandContext(ctx, p.command, append(slices.Clone(p.args), track)...)
		if err := cmd.Run(); err != nil {
			if ctx.Err() != nil {
				p.log.Infow("playlist stopped", "track", track)
				return nil
			}

			p.log.Warnw("player exited with error", "track", track, "error", err)
		}
	}

	return nil
}

func (p *playerImpl) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
}

func (p *playerImpl) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.done != nil
}
