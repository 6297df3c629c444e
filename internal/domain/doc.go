// Package domain models tropical-cyclone wind snapshots and the surface forcing
// derived from them.
//
// # Data Sources
//
// Two archive families are supported. Both are converted into the same
// [Snapshot] capability set at load time, so nothing downstream of the parsers
// knows which archive a field came from except by switching on the concrete
// snapshot type.
//
// HWIND (storm-centred) archives ship one text grid per analysis plus a
// manifest listing them:
//
//	line 1   free-form title, ignored
//	line 2   wind multiplier applied to every velocity, e.g. 1.0
//	line 3   pressure-wind relationship: dvorak | knaffzehr | specifiedPc | background
//	line 4+  <index> <time> <central pressure mb> <ramp> <grid file>
//
// The grid file carries a storm-centre locale, four counted coordinate axes
// (x km, y km, lon, lat) and an nx by ny block of "(u, v)" pairs.
//
// OWI (gridded) archives are basin-scale regular grids delivered as a pair of
// files sharing one header layout: the "1" file holds pressure, the "2" file
// holds u then v. Each snapshot block starts with
//
//	iLat= 100iLong= 120DX=0.2500DY=0.2500SWLat=10.00000SWLon=-98.0000DT=200809010000
//
// and both files must agree on every header field for every snapshot.
//
// # Conventions
//
// Coordinates:
//
//	Degrees, longitude east-positive. Grids flatten with longitude varying
//	fastest, so value k of a velocity array sits at column k % nLon, row k / nLon.
//
// Time:
//
//	Every snapshot carries an absolute UTC time. HWIND manifests that use hour
//	offsets are resolved against the run start before the snapshot is built.
//	OWI DT stamps are already absolute (YYYYMMDDhhmm).
//
// Pressure:
//
//	Millibars everywhere inside the engine; converted to pascals (x100) only in
//	[Forcing.PressurePa]. Points outside a snapshot's hull get 1013 mb.
//
// Distance:
//
//	Kilometres, haversine on a sphere of radius [EarthRadiusKM].
//
// # Errors
//
// Failures are fatal for a run and fall into a closed set of sentinels
// ([ErrConfig], [ErrMalformedRecord], [ErrUnknownFieldType],
// [ErrInconsistentPairedFile], [ErrInsufficientData], [ErrTimeRange]). Typed
// errors carry the file, line, or time that triggered them and match their
// sentinel with errors.Is.
package domain
