package transfer

import "github.com/gpsio/gpsio-host/internal/ipc"

// Profile describes where a device family keeps its data.
type Profile struct {
	Target ipc.Target
	// Marker identifies a mass-storage volume of this family, relative to
	// the volume root.
	Marker string
	// TrackDir holds track files, relative to the volume root.
	TrackDir string
	Ext      string
	// Format is the converter's name for the device's USB protocol.
	Format       string
	ExportPrefix string
}

// Garmin units expose Garmin/GarminDevice.xml in mass-storage mode and keep
// GPX files (saved tracks, routes, archives) under Garmin/GPX.
var Garmin = Profile{
	Target:       ipc.TargetGarmin,
	Marker:       "Garmin/GarminDevice.xml",
	TrackDir:     "Garmin/GPX",
	Ext:          ".gpx",
	Format:       "garmin",
	ExportPrefix: "gpsio",
}

// ProfileFor returns the profile of t.
func ProfileFor(t ipc.Target) Profile {
	switch t {
	case ipc.TargetGarmin:
		return Garmin
	}
	panic("transfer: no profile for target " + string(t))
}
