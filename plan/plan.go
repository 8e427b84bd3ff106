// Package plan diffs a local FileMap against a remote FileMap to
// produce the ordered upload and delete lists the Deployer applies.
package plan

import (
	"sort"

	"github.com/bobg/htdeploy"
)

// Plan is the output of Diff.
type Plan struct {
	// Uploads is every local path that is new or changed relative to
	// remote, sorted so that a directory always precedes its own
	// contents (grouped by parent directory). If
	// ManifestChanged, the manifest's own path is appended as the final
	// element.
	Uploads []htdeploy.Path
	// Deletes is every remote-only path, in reverse lexicographic order
	// so that children precede their parents. Empty unless allowDelete.
	Deletes []htdeploy.Path
	// ManifestChanged reports whether local and remote differ at all,
	// including presence-only differences with nothing to delete.
	ManifestChanged bool
}

// Diff computes Plan. local and remote must already
// have the manifest's own entry excluded; manifestPath is appended to
// Uploads when the two maps differ.
func Diff(local, remote htdeploy.FileMap, manifestPath htdeploy.Path, allowDelete bool) Plan {
	var uploads []htdeploy.Path
	for _, p := range local.Paths() {
		rf, ok := remote[p]
		if !ok || rf != local[p] {
			uploads = append(uploads, p)
		}
	}

	var deletes []htdeploy.Path
	if allowDelete {
		for _, p := range remote.Paths() {
			if _, ok := local[p]; !ok {
				deletes = append(deletes, p)
			}
		}
		sort.Slice(deletes, func(i, j int) bool { return deletes[i] > deletes[j] })
	}

	manifestChanged := !local.Equal(remote)
	if manifestChanged {
		uploads = append(uploads, manifestPath)
	}

	return Plan{
		Uploads:         uploads,
		Deletes:         deletes,
		ManifestChanged: manifestChanged,
	}
}

// Idle reports whether the plan has nothing to do: both Uploads and
// Deletes are empty. The Deployer's fast path checks this before
// writing a running marker.
func (p Plan) Idle() bool {
	return len(p.Uploads) == 0 && len(p.Deletes) == 0
}
