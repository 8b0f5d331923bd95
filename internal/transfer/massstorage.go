package transfer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/gpsio/gpsio-host/internal/converter"
	"github.com/gpsio/gpsio-host/internal/ipc"
	"github.com/gpsio/gpsio-host/internal/tracks"
)

// ExportStamp is the time layout used in exported file names.
const ExportStamp = "2006_01_02_150405"

func (d *Dispatcher) massStorage(ctx context.Context, cmd ipc.Command, p Profile, mount string, data *string, opts tracks.Options) Result {
	switch cmd {
	case ipc.CommandImport:
		return d.importMassStorage(ctx, p, mount, opts)
	case ipc.CommandExport:
		return d.exportMassStorage(p, mount, *data)
	}
	return d.failed(string(cmd), fail(KindInvalidRequest, "cmd must be 'import' or 'export'"))
}

// importMassStorage merges the selected track files through the converter.
func (d *Dispatcher) importMassStorage(ctx context.Context, p Profile, mount string, opts tracks.Options) Result {
	cmd := string(ipc.CommandImport)
	dir := filepath.Join(mount, filepath.FromSlash(p.TrackDir))

	all, err := tracks.Scan(dir, p.Ext)
	if err != nil {
		return d.failed(cmd, &Error{Kind: KindDeviceIO, Msg: "could not read " + dir, Err: err})
	}
	total := len(all)

	selected, err := tracks.Apply(all, opts, d.now())
	if err != nil {
		r := d.failed(cmd, &Error{Kind: KindInvalidRequest, Msg: err.Error(), Err: err})
		r.Total = total
		return r
	}

	d.log.WithFields(log.Fields{
		"method":   opts.Method,
		"total":    total,
		"selected": len(selected),
	}).Debug("filtered track files")

	if len(selected) == 0 {
		r := d.failed(cmd, fail(KindNoFilesMatched,
			fmt.Sprintf("No GPX files out of %d met the filter settings.  Click the GPSIO Extension icon for details.", total)))
		r.Total = total
		return r
	}

	args := converter.MergeArgs(tracks.Paths(selected))
	d.log.WithFields(log.Fields{"converter": d.cfg.ConverterPath, "args": args}).Debug("invoking converter")
	out, err := d.runner.Run(ctx, args, nil)
	if err != nil {
		r := d.failed(cmd, &Error{Kind: KindDeviceIO, Msg: "could not run converter", Err: err})
		r.Total, r.Selected = total, len(selected)
		return r
	}
	if converter.Significant(out.Stderr) {
		r := d.failed(cmd, fail(KindToolReported, converter.DecodeText(out.Stderr)))
		r.Total, r.Selected = total, len(selected)
		return r
	}

	r := succeeded(cmd, converter.DecodeText(out.Stdout))
	r.Response.Note = fmt.Sprintf("Showing data from %d out of %d total GPX file(s).  Click the GPSIO Extension icon for details.", len(selected), total)
	r.Total, r.Selected = total, len(selected)
	return r
}

// exportMassStorage writes data verbatim as a new file in the track
// directory.
func (d *Dispatcher) exportMassStorage(p Profile, mount, data string) Result {
	cmd := string(ipc.CommandExport)
	dir := filepath.Join(mount, filepath.FromSlash(p.TrackDir))

	if err := os.MkdirAll(dir, 0755); err != nil {
		return d.failed(cmd, &Error{Kind: KindDeviceIO, Msg: "could not create " + dir, Err: err})
	}
	f, err := createExportFile(dir, p.ExportPrefix, p.Ext, d.now())
	if err != nil {
		return d.failed(cmd, &Error{Kind: KindDeviceIO, Msg: "could not create export file", Err: err})
	}
	path := f.Name()

	if _, err := f.WriteString(data); err != nil {
		f.Close()
		return d.failed(cmd, &Error{Kind: KindDeviceIO, Msg: "could not write " + path, Err: err})
	}
	if err := f.Close(); err != nil {
		return d.failed(cmd, &Error{Kind: KindDeviceIO, Msg: "could not write " + path, Err: err})
	}

	d.log.WithField("path", path).Debug("exported track file")
	return succeeded(cmd, "GMSM export successful")
}

// createExportFile creates <dir>/<prefix><stamp><ext> without replacing an
// existing file. If the name is taken a short random suffix is added.
func createExportFile(dir, prefix, ext string, now time.Time) (*os.File, error) {
	base := prefix + now.Format(ExportStamp)

	f, err := os.OpenFile(filepath.Join(dir, base+ext), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err == nil || !errors.Is(err, fs.ErrExist) {
		return f, err
	}
	suffix := uuid.NewString()[:8]
	return os.OpenFile(filepath.Join(dir, base+"_"+suffix+ext), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
}
