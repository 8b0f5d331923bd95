// Package host runs one native-messaging exchange: read a request, carry it
// out, send the response and record it in the transfer journal.
package host

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/gpsio/gpsio-host/internal/config"
	"github.com/gpsio/gpsio-host/internal/converter"
	"github.com/gpsio/gpsio-host/internal/device"
	"github.com/gpsio/gpsio-host/internal/ipc"
	"github.com/gpsio/gpsio-host/internal/logging"
	"github.com/gpsio/gpsio-host/internal/store"
	"github.com/gpsio/gpsio-host/internal/transfer"
)

// Handler carries out one raw request.
type Handler interface {
	Handle(ctx context.Context, raw []byte) transfer.Result
}

// Journal records handled requests.
type Journal interface {
	InsertTransfer(t store.Transfer) (int64, error)
}

// Host serves a single request per process.
type Host struct {
	cfg     *config.Config
	handler Handler
	journal Journal
	log     log.FieldLogger
}

// New creates a Host. journal may be nil when history is disabled.
func New(cfg *config.Config, handler Handler, journal Journal, logger log.FieldLogger) *Host {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Host{
		cfg:     cfg,
		handler: handler,
		journal: journal,
		log:     logger.WithField("component", "host"),
	}
}

// Serve reads one request from in and writes its response to out. A
// malformed request produces no output and an error wrapping
// ipc.ErrMalformedRequest.
func (h *Host) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	start := time.Now()

	raw, err := ipc.ReadRequest(in)
	if err != nil {
		h.log.WithError(err).Error("could not read request")
		return err
	}
	h.log.WithField("bytes", len(raw)).Debug("request received")

	res := h.handler.Handle(ctx, raw)

	chunks, sendErr := ipc.NewWriter(out, h.cfg.ChunkSize, h.log).Send(res.Response)
	if sendErr != nil {
		h.log.WithError(sendErr).Error("could not send response")
	}

	h.record(res, chunks, time.Since(start))
	return sendErr
}

// record writes res to the journal. Failures are logged only; the response
// has already been sent.
func (h *Host) record(res transfer.Result, chunks int, elapsed time.Duration) {
	if h.journal == nil {
		return
	}

	t := store.Transfer{
		Cmd:           res.Response.Cmd,
		Target:        res.Target,
		Strategy:      string(res.Strategy),
		Outcome:       string(res.Outcome),
		Mount:         res.Mount,
		TotalFiles:    res.Total,
		SelectedFiles: res.Selected,
		ResponseBytes: len(res.Response.Text()),
		Chunks:        chunks,
		Duration:      elapsed,
		CreatedAt:     time.Now(),
	}
	var te *transfer.Error
	if errors.As(res.Err, &te) {
		t.ErrorKind = te.Kind.String()
		t.Message = te.Msg
	} else if res.Response.Status == ipc.StatusOK && res.Response.Cmd == string(ipc.CommandExport) {
		t.Message = res.Response.Text()
	}

	if _, err := h.journal.InsertTransfer(t); err != nil {
		h.log.WithError(err).Warn("could not record transfer")
	}
}

// Run is the host-mode entry point: it wires the configured components,
// serves one request on stdin/stdout and releases everything.
func Run(cfg *config.Config, stdin io.Reader, stdout io.Writer) error {
	logger, closer, err := logging.New(cfg)
	if err != nil {
		// Logging is optional; keep serving with warnings on stderr.
		fmt.Fprintf(os.Stderr, "gpsio-host: %v\n", err)
		logger = log.New()
		logger.SetLevel(log.WarnLevel)
		closer = io.NopCloser(nil)
	}
	defer closer.Close()

	logger.WithFields(log.Fields{
		"converter":  cfg.ConverterPath,
		"chunk_size": cfg.ChunkSize,
	}).Debug("configuration loaded")

	var journal Journal
	if cfg.History {
		if s, err := openJournal(cfg); err != nil {
			logger.WithError(err).Warn("transfer history disabled")
		} else {
			defer s.Close()
			journal = s
		}
	}

	dispatcher := transfer.New(cfg,
		device.ForRoots(cfg.MountRoots),
		converter.ExecRunner{Path: cfg.ConverterPath},
		logger,
	)

	ctx, stop := signalContext(context.Background())
	defer stop()

	out := bufio.NewWriter(stdout)
	err = New(cfg, dispatcher, journal, logger).Serve(ctx, stdin, out)
	if ferr := out.Flush(); err == nil && ferr != nil {
		err = ferr
	}
	return err
}

func openJournal(cfg *config.Config) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.HistoryPath), 0755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	return store.New(cfg.HistoryPath)
}
