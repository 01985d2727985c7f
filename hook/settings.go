package hook

import (
	"sync/atomic"

	"github.com/chazu/interpose/config"
	"github.com/sasha-s/go-deadlock"
	"github.com/tliron/commonlog"
)

type settings struct {
	strict          bool
	warnUnforwarded bool
	suffix          string
}

var current atomic.Pointer[settings]

func init() {
	apply(config.Default())
}

// Configure applies cfg to the engine: logging, validation strictness,
// deadlock detection on the mutation queue and subclass naming. Call it
// before installing hooks; classes already synthesized keep their names.
func Configure(cfg *config.Config) {
	if cfg == nil {
		cfg = config.Default()
	}
	commonlog.Configure(cfg.Log.Verbosity, cfg.LogPath())
	apply(cfg)
	log.Infof("configured: strict=%t warn-unforwarded=%t detect-deadlocks=%t",
		cfg.Validation.Strict, cfg.Destruction.WarnUnforwarded, cfg.Queue.DetectDeadlocks)
}

func apply(cfg *config.Config) {
	deadlock.Opts.Disable = !cfg.Queue.DetectDeadlocks
	deadlock.Opts.DeadlockTimeout = cfg.Queue.DeadlockTimeout
	current.Store(&settings{
		strict:          cfg.Validation.Strict,
		warnUnforwarded: cfg.Destruction.WarnUnforwarded,
		suffix:          cfg.Subclass.Suffix,
	})
}

func loadSettings() *settings {
	return current.Load()
}
