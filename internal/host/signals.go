package host

import (
	"context"
	"os/signal"
	"syscall"
)

// signalContext returns a context that is cancelled when SIGTERM or SIGINT
// is received. The browser terminates the host this way when the extension
// disconnects; cancelling kills a converter blocked on the device.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGTERM, syscall.SIGINT)
}
