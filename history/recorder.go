// Package history appends play events to an external store.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/yhkl-dev/SonicCLI/domain"
)

// Recorder appends one entry per playback start
type Recorder interface {
	Record(ctx context.Context, entry domain.HistoryEntry) error
	Close() error
}

const (
	DriverNone     = "none"
	DriverFirebase = "firebase"
	DriverRedis    = "redis"
)

// Options selects and configures a driver
type Options struct {
	Driver  string
	UserID  string
	Timeout time.Duration

	FirebaseURL  string
	FirebaseAuth string

	RedisURL string
}

// New creates the recorder named by opts.Driver
func New(opts Options) (Recorder, error) {
	if opts.UserID == "" {
		opts.UserID = "guest"
	}
	switch opts.Driver {
	case "", DriverNone:
		return Noop{}, nil
	case DriverFirebase:
		if opts.FirebaseURL == "" {
			return nil, fmt.Errorf("history driver %q requires a database url", opts.Driver)
		}
		return NewFirebaseStore(opts.FirebaseURL, opts.FirebaseAuth, opts.UserID, opts.Timeout), nil
	case DriverRedis:
		if opts.RedisURL == "" {
			return nil, fmt.Errorf("history driver %q requires a redis url", opts.Driver)
		}
		return NewRedisStoreFromURL(opts.RedisURL, opts.UserID)
	default:
		return nil, fmt.Errorf("unknown history driver %q", opts.Driver)
	}
}

// Noop discards entries
type Noop struct{}

func (Noop) Record(ctx context.Context, entry domain.HistoryEntry) error { return nil }
func (Noop) Close() error                                               { return nil }
