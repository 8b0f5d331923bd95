package transfer

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/gpsio/gpsio-host/internal/converter"
	"github.com/gpsio/gpsio-host/internal/ipc"
)

// viaConverter talks to the device over its USB protocol through the
// converter. Used when no mass-storage volume was found.
func (d *Dispatcher) viaConverter(ctx context.Context, cmd ipc.Command, p Profile, data *string) Result {
	var (
		args  []string
		stdin []byte
	)
	switch cmd {
	case ipc.CommandImport:
		args = converter.DeviceImportArgs(p.Format)
	case ipc.CommandExport:
		args = converter.DeviceExportArgs(p.Format)
		stdin = []byte(*data)
	default:
		return d.failed(string(cmd), fail(KindInvalidRequest, "cmd must be 'import' or 'export'"))
	}

	d.log.WithFields(log.Fields{"converter": d.cfg.ConverterPath, "args": args, "stdin_bytes": len(stdin)}).Debug("invoking converter")
	out, err := d.runner.Run(ctx, args, stdin)
	if err != nil {
		return d.failed(string(cmd), &Error{Kind: KindDeviceIO, Msg: "could not run converter", Err: err})
	}

	stderr := converter.DecodeText(out.Stderr)
	if converter.IsNoDevice(stderr) {
		d.log.WithField("stderr", stderr).Debug("converter found no device")
		return d.failed(string(cmd), fail(KindDeviceNotFound, "no GPS was found"))
	}
	if converter.Significant(out.Stderr) {
		return d.failed(string(cmd), fail(KindToolReported, stderr))
	}

	if cmd == ipc.CommandExport {
		return succeeded(string(cmd), "GPSBabel export successful")
	}
	return succeeded(string(cmd), converter.DecodeText(out.Stdout))
}
