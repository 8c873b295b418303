package player

import "context"

type API interface {
	// Play runs the playlist track by track and blocks until it finishes, is
	// stopped, or ctx is done. Starting a playlist stops the current one.
	Play(ctx context.Context, tracks []string) error
	// Stop ends the current playlist and waits for its player to exit.
	Stop()
	Playing() bool
}
