// Package transfer carries one request from the extension to completion:
// it validates the request, locates the device and runs the matching
// transfer strategy.
package transfer

import (
	"context"
	"errors"
	"io"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/gpsio/gpsio-host/internal/config"
	"github.com/gpsio/gpsio-host/internal/converter"
	"github.com/gpsio/gpsio-host/internal/device"
	"github.com/gpsio/gpsio-host/internal/ipc"
	"github.com/gpsio/gpsio-host/internal/tracks"
)

// Strategy names how a request reached the device.
type Strategy string

const (
	StrategyNone        Strategy = ""
	StrategyMassStorage Strategy = "mass-storage"
	StrategyConverter   Strategy = "converter"
)

// Result is the outcome of one request: the response to send and what
// happened on the way, for logging and the transfer journal.
type Result struct {
	Response ipc.Response
	Outcome  Outcome
	Strategy Strategy
	Target   string
	Mount    string
	Total    int
	Selected int
	Err      error
}

// Dispatcher handles requests. It holds no per-request state.
type Dispatcher struct {
	cfg     *config.Config
	volumes device.VolumeEnumerator
	runner  converter.Runner
	log     log.FieldLogger
	now     func() time.Time
}

// New creates a Dispatcher. A nil logger discards output.
func New(cfg *config.Config, volumes device.VolumeEnumerator, runner converter.Runner, logger log.FieldLogger) *Dispatcher {
	if logger == nil {
		l := log.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Dispatcher{
		cfg:     cfg,
		volumes: volumes,
		runner:  runner,
		log:     logger.WithField("component", "transfer"),
		now:     time.Now,
	}
}

// Handle processes one raw request payload. Every failure is reported in
// the returned response; Handle never returns without one.
func (d *Dispatcher) Handle(ctx context.Context, raw []byte) Result {
	cmd, ok := ipc.PeekCommand(raw)
	if !ok {
		return d.failed("", fail(KindMissingField, "must specify 'cmd' in the JSON request"))
	}
	if cmd == string(ipc.CommandPing) {
		return Result{Response: ipc.Pong(), Outcome: OutcomeOK}
	}

	req, err := ipc.ParseRequest(raw)
	if err != nil {
		return d.failed(cmd, &Error{Kind: KindInvalidRequest, Msg: err.Error(), Err: err})
	}

	command, ok := ipc.ParseCommand(req.Cmd)
	if !ok {
		return d.failed(cmd, fail(KindInvalidRequest, "cmd must be 'ping-host', 'import' or 'export'"))
	}
	if command == ipc.CommandExport && req.Data == nil {
		return d.failed(cmd, fail(KindMissingField, "when 'cmd' is 'export', 'data' must be specified in the JSON request"))
	}
	if req.Target == "" {
		return d.failed(cmd, fail(KindMissingField, "must specify 'target' in the JSON request"))
	}
	target, ok := ipc.ParseTarget(req.Target)
	if !ok {
		r := d.failed(cmd, fail(KindUnsupportedTarget, "target not supported: Currently, 'garmin' is the only supported target"))
		r.Target = req.Target
		return r
	}

	var opts tracks.Options
	if req.Options != nil {
		opts = *req.Options
	}
	profile := ProfileFor(target)

	logger := d.log.WithFields(log.Fields{"cmd": cmd, "target": target})
	var res Result
	if mount, found := device.FindMassStorage(d.volumes, profile.Marker); found {
		logger.WithField("mount", mount).Debug("mass-storage device found")
		res = d.massStorage(ctx, command, profile, mount, req.Data, opts)
		res.Strategy = StrategyMassStorage
		res.Mount = mount
	} else {
		logger.Debug("no mass-storage device, trying converter")
		res = d.viaConverter(ctx, command, profile, req.Data)
		res.Strategy = StrategyConverter
	}
	res.Target = string(target)
	res.Response.Cmd = cmd

	if res.Err != nil {
		logger.WithError(res.Err).WithField("outcome", res.Outcome).Warn("transfer failed")
	} else {
		logger.WithField("strategy", res.Strategy).Debug("transfer complete")
	}
	return res
}

// failed turns an error into a result with an error response.
func (d *Dispatcher) failed(cmd string, err error) Result {
	var te *Error
	if !errors.As(err, &te) {
		te = &Error{Kind: KindDeviceIO, Msg: err.Error(), Err: err}
	}
	if te.Kind.Outcome() == OutcomeBadRequest {
		d.log.WithField("cmd", cmd).WithError(te).Info("bad request")
	}
	return Result{
		Response: ipc.Fail(cmd, te.Msg),
		Outcome:  te.Kind.Outcome(),
		Err:      te,
	}
}

func succeeded(cmd, message string) Result {
	return Result{Response: ipc.OK(cmd, message), Outcome: OutcomeOK}
}
