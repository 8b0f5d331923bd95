package transfer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpsio/gpsio-host/internal/config"
	"github.com/gpsio/gpsio-host/internal/converter"
	"github.com/gpsio/gpsio-host/internal/device"
	"github.com/gpsio/gpsio-host/internal/ipc"
)

type call struct {
	args  []string
	stdin []byte
}

type fakeRunner struct {
	result converter.Result
	err    error
	calls  []call
}

func (f *fakeRunner) Run(_ context.Context, args []string, stdin []byte) (converter.Result, error) {
	f.calls = append(f.calls, call{args: args, stdin: stdin})
	return f.result, f.err
}

type noVolumes struct{}

func (noVolumes) Volumes() ([]string, error) { return nil, nil }

var clock = time.Date(2024, 6, 1, 12, 30, 45, 0, time.UTC)

func newDispatcher(volumes device.VolumeEnumerator, runner *fakeRunner) *Dispatcher {
	d := New(config.Default(), volumes, runner, nil)
	d.now = func() time.Time { return clock }
	return d
}

// garminVolume creates a mass-storage volume holding the named track files,
// each one hour older than the previous.
func garminVolume(t *testing.T, names ...string) (device.VolumeEnumerator, string) {
	t.Helper()
	root := t.TempDir()
	vol := filepath.Join(root, "GARMIN")
	gpx := filepath.Join(vol, "Garmin", "GPX")
	require.NoError(t, os.MkdirAll(gpx, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(vol, "Garmin", "GarminDevice.xml"), []byte("<Device/>"), 0o644))

	for i, name := range names {
		path := filepath.Join(gpx, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", 100*(i+1))), 0o644))
		mtime := clock.Add(-time.Duration(i+1) * time.Hour)
		require.NoError(t, os.Chtimes(path, mtime, mtime))
	}
	return device.MountRoots{Roots: []string{root}}, vol
}

func TestPingIgnoresOtherFields(t *testing.T) {
	runner := &fakeRunner{}
	d := newDispatcher(noVolumes{}, runner)

	res := d.Handle(context.Background(), []byte(`{"cmd":"ping-host","target":"magellan","options":"junk"}`))
	assert.Equal(t, ipc.Pong(), res.Response)
	assert.Equal(t, OutcomeOK, res.Outcome)
	assert.Empty(t, runner.calls)
}

func TestBadRequests(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"missing cmd", `{"target":"garmin"}`, "must specify 'cmd' in the JSON request"},
		{"export without data", `{"cmd":"export"}`, "when 'cmd' is 'export', 'data' must be specified in the JSON request"},
		{"missing target", `{"cmd":"import"}`, "must specify 'target' in the JSON request"},
		{"unsupported target", `{"cmd":"import","target":"magellan"}`, "target not supported: Currently, 'garmin' is the only supported target"},
		{"unknown cmd", `{"cmd":"erase","target":"garmin"}`, "cmd must be 'ping-host', 'import' or 'export'"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runner := &fakeRunner{}
			d := newDispatcher(noVolumes{}, runner)

			res := d.Handle(context.Background(), []byte(tc.raw))
			assert.Equal(t, ipc.StatusError, res.Response.Status)
			assert.Equal(t, tc.want, res.Response.Text())
			assert.Equal(t, OutcomeBadRequest, res.Outcome)
			assert.Empty(t, runner.calls, "no device contact")
		})
	}
}

func TestInvalidFieldTypes(t *testing.T) {
	d := newDispatcher(noVolumes{}, &fakeRunner{})
	res := d.Handle(context.Background(), []byte(`{"cmd":"import","target":"garmin","options":{"recentSel":[3]}}`))
	assert.Equal(t, OutcomeBadRequest, res.Outcome)
	assert.Equal(t, "import", res.Response.Cmd)

	var te *Error
	require.True(t, errors.As(res.Err, &te))
	assert.Equal(t, KindInvalidRequest, te.Kind)
}

func TestMassStorageImport(t *testing.T) {
	volumes, vol := garminVolume(t, "Track_A.gpx", "Archive/Track_B.GPX", "Waypoints.gpx", ".hidden.gpx", "notes.txt")
	runner := &fakeRunner{result: converter.Result{Stdout: []byte("<gpx>merged</gpx>"), Stderr: []byte("\r\n")}}
	d := newDispatcher(volumes, runner)

	res := d.Handle(context.Background(), []byte(`{"cmd":"import","target":"garmin","options":{"method":"recent","recentSel":"2"}}`))
	require.Equal(t, OutcomeOK, res.Outcome, res.Response.Text())
	assert.Equal(t, "<gpx>merged</gpx>", res.Response.Text())
	assert.Equal(t, "Showing data from 2 out of 3 total GPX file(s).  Click the GPSIO Extension icon for details.", res.Response.Note)
	assert.Equal(t, StrategyMassStorage, res.Strategy)
	assert.Equal(t, vol, res.Mount)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.Selected)

	gpx := filepath.Join(vol, "Garmin", "GPX")
	require.Len(t, runner.calls, 1)
	assert.Equal(t, converter.MergeArgs([]string{
		filepath.Join(gpx, "Track_A.gpx"),
		filepath.Join(gpx, "Archive", "Track_B.GPX"),
	}), runner.calls[0].args)
}

func TestMassStorageImportNoOptionsUsesEverything(t *testing.T) {
	volumes, _ := garminVolume(t, "a.gpx", "b.gpx", "c.gpx")
	runner := &fakeRunner{result: converter.Result{Stdout: []byte("<gpx/>")}}
	d := newDispatcher(volumes, runner)

	res := d.Handle(context.Background(), []byte(`{"cmd":"import","target":"garmin"}`))
	require.Equal(t, OutcomeOK, res.Outcome)
	assert.Equal(t, 3, res.Selected)
	assert.Contains(t, res.Response.Note, "3 out of 3")
}

func TestMassStorageImportNoFiles(t *testing.T) {
	volumes, _ := garminVolume(t)
	runner := &fakeRunner{}
	d := newDispatcher(volumes, runner)

	res := d.Handle(context.Background(), []byte(`{"cmd":"import","target":"garmin"}`))
	assert.Equal(t, ipc.StatusError, res.Response.Status)
	assert.Equal(t, "No GPX files out of 0 met the filter settings.  Click the GPSIO Extension icon for details.", res.Response.Text())
	assert.Empty(t, runner.calls)
}

func TestMassStorageImportFilteredToNothing(t *testing.T) {
	volumes, _ := garminVolume(t, "a.gpx", "b.gpx")
	d := newDispatcher(volumes, &fakeRunner{})

	res := d.Handle(context.Background(), []byte(`{"cmd":"import","target":"garmin","options":{"method":"time","timeSel":"0.5"}}`))
	assert.Equal(t, "No GPX files out of 2 met the filter settings.  Click the GPSIO Extension icon for details.", res.Response.Text())
	assert.Equal(t, 2, res.Total)
}

func TestMassStorageImportBadSizeFilter(t *testing.T) {
	volumes, _ := garminVolume(t, "a.gpx")
	runner := &fakeRunner{}
	d := newDispatcher(volumes, runner)

	res := d.Handle(context.Background(), []byte(`{"cmd":"import","target":"garmin","options":{"size":true,"sizeSel":"__import__('os')"}}`))
	assert.Equal(t, OutcomeBadRequest, res.Outcome)
	assert.Empty(t, runner.calls)
}

func TestMassStorageImportConverterError(t *testing.T) {
	volumes, _ := garminVolume(t, "a.gpx")
	runner := &fakeRunner{result: converter.Result{Stdout: []byte("<gpx/>"), Stderr: []byte("GPX: Unexpected end of file")}}
	d := newDispatcher(volumes, runner)

	res := d.Handle(context.Background(), []byte(`{"cmd":"import","target":"garmin"}`))
	assert.Equal(t, ipc.StatusError, res.Response.Status)
	assert.Equal(t, "GPX: Unexpected end of file", res.Response.Text())
	assert.Equal(t, OutcomeDeviceReported, res.Outcome)
}

func TestMassStorageExport(t *testing.T) {
	volumes, vol := garminVolume(t)
	runner := &fakeRunner{}
	d := newDispatcher(volumes, runner)
	data := `<?xml version="1.0"?><gpx><wpt lat="1" lon="2"><name>Café</name></wpt></gpx>`

	raw, err := ipc.EncodeRequest(ipc.Request{Cmd: "export", Target: "garmin", Data: &data}, nil)
	require.NoError(t, err)

	res := d.Handle(context.Background(), raw)
	require.Equal(t, OutcomeOK, res.Outcome, res.Response.Text())
	assert.Equal(t, "GMSM export successful", res.Response.Text())
	assert.Empty(t, runner.calls)

	written, err := os.ReadFile(filepath.Join(vol, "Garmin", "GPX", "gpsio2024_06_01_123045.gpx"))
	require.NoError(t, err)
	assert.Equal(t, data, string(written))

	// Same second: the first file is kept and a suffixed name is used.
	res = d.Handle(context.Background(), raw)
	require.Equal(t, OutcomeOK, res.Outcome)
	matches, err := filepath.Glob(filepath.Join(vol, "Garmin", "GPX", "gpsio2024_06_01_123045*.gpx"))
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestConverterImport(t *testing.T) {
	runner := &fakeRunner{result: converter.Result{Stdout: []byte{'<', 'n', 'a', 'm', 'e', '>', 0xe9, '<'}}}
	d := newDispatcher(noVolumes{}, runner)

	res := d.Handle(context.Background(), []byte(`{"cmd":"import","target":"garmin"}`))
	require.Equal(t, OutcomeOK, res.Outcome)
	assert.Equal(t, "<name>é<", res.Response.Text(), "latin-1 output is decoded")
	assert.Equal(t, StrategyConverter, res.Strategy)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, converter.DeviceImportArgs("garmin"), runner.calls[0].args)
	assert.Nil(t, runner.calls[0].stdin)
}

func TestConverterExport(t *testing.T) {
	runner := &fakeRunner{}
	d := newDispatcher(noVolumes{}, runner)

	res := d.Handle(context.Background(), []byte(`{"cmd":"export","target":"garmin","data":"<gpx/>"}`))
	require.Equal(t, OutcomeOK, res.Outcome)
	assert.Equal(t, "GPSBabel export successful", res.Response.Text())
	require.Len(t, runner.calls, 1)
	assert.Equal(t, converter.DeviceExportArgs("garmin"), runner.calls[0].args)
	assert.Equal(t, []byte("<gpx/>"), runner.calls[0].stdin)
}

func TestConverterNoDevice(t *testing.T) {
	stderr := "[ERROR] SetupDiEnumDeviceInterfaces: The device is not ready.\r\n" +
		"Is the Garmin USB unit number 0 powered up and connected?\r\nGARMIN:Can't init usb:\r\n"
	d := newDispatcher(noVolumes{}, &fakeRunner{result: converter.Result{Stderr: []byte(stderr), ExitCode: 1}})

	res := d.Handle(context.Background(), []byte(`{"cmd":"import","target":"garmin"}`))
	assert.Equal(t, ipc.StatusError, res.Response.Status)
	assert.Equal(t, "no GPS was found", res.Response.Text())
	assert.Equal(t, OutcomeNoDevice, res.Outcome)
}

func TestConverterReportedError(t *testing.T) {
	d := newDispatcher(noVolumes{}, &fakeRunner{result: converter.Result{Stderr: []byte("GARMIN: Unsupported protocol D800")}})

	res := d.Handle(context.Background(), []byte(`{"cmd":"export","target":"garmin","data":"<gpx/>"}`))
	assert.Equal(t, "GARMIN: Unsupported protocol D800", res.Response.Text())
	assert.Equal(t, OutcomeDeviceReported, res.Outcome)
}

func TestConverterCannotStart(t *testing.T) {
	d := newDispatcher(noVolumes{}, &fakeRunner{err: errors.New("exec: \"gpsbabel\": executable file not found in $PATH")})

	res := d.Handle(context.Background(), []byte(`{"cmd":"import","target":"garmin"}`))
	assert.Equal(t, ipc.StatusError, res.Response.Status)
	assert.Equal(t, OutcomeDeviceReported, res.Outcome)

	var te *Error
	require.True(t, errors.As(res.Err, &te))
	assert.Equal(t, KindDeviceIO, te.Kind)
}

func TestKindOutcome(t *testing.T) {
	assert.Equal(t, OutcomeBadRequest, KindNoFilesMatched.Outcome())
	assert.Equal(t, OutcomeNoDevice, KindDeviceNotFound.Outcome())
	assert.Equal(t, OutcomeDeviceReported, KindToolReported.Outcome())
	assert.Equal(t, OutcomeDeviceReported, KindDeviceIO.Outcome())
}
