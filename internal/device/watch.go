package device

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// WaitOptions tunes WaitForDevice.
type WaitOptions struct {
	// Poll is the rescan interval used when events cannot be watched
	// (drive letters) or are missed. Zero means one second.
	Poll time.Duration
	// Settle is the quiet window after a mount event before rescanning,
	// so the marker file has time to become readable. Zero means 250ms.
	Settle time.Duration
	Log    log.FieldLogger
}

// WaitForDevice blocks until a volume containing marker appears or ctx is
// done. It returns the volume path, or ctx.Err().
func WaitForDevice(ctx context.Context, enum VolumeEnumerator, marker string, opts WaitOptions) (string, error) {
	if opts.Poll <= 0 {
		opts.Poll = time.Second
	}
	if opts.Settle <= 0 {
		opts.Settle = 250 * time.Millisecond
	}
	logger := opts.Log
	if logger == nil {
		logger = log.StandardLogger()
	}

	if vol, ok := FindMassStorage(enum, marker); ok {
		return vol, nil
	}

	var events <-chan fsnotify.Event
	var errs <-chan error
	if w, ok := enum.(Watchable); ok {
		fsw, err := fsnotify.NewWatcher()
		if err != nil {
			logger.WithError(err).Debug("device: fsnotify unavailable, polling only")
		} else {
			defer fsw.Close()
			for _, root := range w.WatchRoots() {
				if err := fsw.Add(root); err != nil {
					logger.WithError(err).WithField("root", root).Debug("device: watch root")
				}
			}
			events, errs = fsw.Events, fsw.Errors
		}
	}

	ticker := time.NewTicker(opts.Poll)
	defer ticker.Stop()

	settle := time.NewTimer(opts.Settle)
	settle.Stop()
	defer settle.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) {
				logger.WithField("path", ev.Name).Debug("device: mount event")
				settle.Reset(opts.Settle)
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.WithError(err).Debug("device: fsnotify error")

		case <-settle.C:
		case <-ticker.C:
		}

		if vol, ok := FindMassStorage(enum, marker); ok {
			return vol, nil
		}
	}
}
