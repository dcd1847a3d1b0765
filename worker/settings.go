package worker

import (
	"time"

	"github.com/sobczal2/jobfire/domain"
)

// Settings configures a JobWorker's polling loop and command channel.
type Settings struct {
	PollRate           time.Duration
	CommandChannelSize int
}

// DefaultSettings returns the worker's default configuration: a 100ms
// poll rate and a 32-deep command channel, large enough to absorb a burst
// of Stop commands without blocking a caller.
func DefaultSettings() Settings {
	return Settings{
		PollRate:           100 * time.Millisecond,
		CommandChannelSize: 32,
	}
}

// Validate reports ErrInvalidSettings if PollRate isn't strictly positive
// or CommandChannelSize isn't a positive integer.
func (s Settings) Validate() error {
	if s.PollRate <= 0 {
		return domain.ErrInvalidSettings
	}
	if s.CommandChannelSize <= 0 {
		return domain.ErrInvalidSettings
	}
	return nil
}
