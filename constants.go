package htdeploy

// TempSuffix is appended to a path's final remote location during
// upload; the upload is only renamed onto its real target once every
// upload in the batch has succeeded.
const TempSuffix = ".deploytmp"

// RunningMarkerSuffix, appended to the manifest name, names the file
// whose presence at <root>/<manifest>.running signals that a deploy
// is in progress (or crashed mid-deploy).
const RunningMarkerSuffix = ".running"
