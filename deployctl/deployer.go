// Package deployctl orchestrates the full synchronization protocol:
// connect, pre-jobs, manifest load, scan, plan, upload, rename,
// delete, purge, post-jobs, in that strict order.
package deployctl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/bobg/htdeploy"
	"github.com/bobg/htdeploy/job"
	"github.com/bobg/htdeploy/manifest"
	"github.com/bobg/htdeploy/plan"
	"github.com/bobg/htdeploy/scan"
	"github.com/bobg/htdeploy/transport"
)

// Deployer owns the Server and Logger for the duration of one Deploy
// call; neither is owned by the other. Construct one per deploy.
type Deployer struct {
	Server transport.Server
	Logger htdeploy.Logger

	Root           string
	ManifestName   string
	AllowDelete    bool
	TestMode       bool
	IgnorePatterns []string
	PurgePaths     []string
	PreJobs        []job.Job
	PostJobs       []job.Job
	Preprocessor   scan.Preprocessor
	// TempDir holds manifest downloads, manifest-upload staging, and
	// running-marker staging. Preprocessor output goes wherever the
	// Preprocessor itself is configured to write. It is an immutable
	// configuration field, not a mutable package-level variable.
	TempDir string
}

func (d *Deployer) manifestPath() htdeploy.Path {
	return htdeploy.Path("/" + d.ManifestName)
}

func (d *Deployer) runningMarkerPath() htdeploy.Path {
	return htdeploy.Path("/" + d.ManifestName + htdeploy.RunningMarkerSuffix)
}

// Deploy runs the full fourteen-phase protocol. A non-nil error means
// the deploy aborted; the running marker (if already written) is
// left in place for the operator to find.
func (d *Deployer) Deploy(ctx context.Context) error {
	// A missing local root is a ConfigError, reported before the Server
	// is contacted.
	if info, err := os.Stat(d.Root); err != nil || !info.IsDir() {
		if err == nil {
			err = errors.Errorf("%s is not a directory", d.Root)
		}
		return &htdeploy.ConfigError{Op: "checking root", Err: err}
	}

	// 1. Connect.
	if err := d.Server.Connect(ctx); err != nil {
		return &htdeploy.ServerError{Op: "connect", Err: err}
	}
	defer d.Server.Close()

	runner := &job.Runner{Remote: d.Server}

	// 2. Local pre-jobs.
	localPre, remotePre := job.Partition(d.PreJobs)
	if err := runner.Run(ctx, localPre); err != nil {
		return &htdeploy.JobError{Job: "pre (local)", Err: err}
	}

	// 3. Load remote manifest.
	remote := d.loadManifest(ctx)

	// 4. Scan.
	local, err := d.scanLocal()
	if err != nil {
		return err
	}
	local = local.Without(d.manifestPath())

	// 5. Plan.
	p := plan.Diff(local, remote, d.manifestPath(), d.AllowDelete)

	// 6. Fast paths.
	if p.Idle() {
		d.log("already synchronized", htdeploy.Success)
		return nil
	}
	if d.TestMode {
		d.logPlan(p)
		return nil
	}

	var manifestBytes []byte
	if p.ManifestChanged {
		manifestBytes, err = manifest.Encode(local)
		if err != nil {
			return errors.Wrap(err, "encoding manifest")
		}
	}

	// 7. Running marker.
	if err := d.writeRunningMarker(ctx); err != nil {
		return err
	}

	// 8. Remote pre-jobs.
	if err := runner.Run(ctx, remotePre); err != nil {
		return &htdeploy.JobError{Job: "pre (remote)", Err: err}
	}

	// 9. Upload phase.
	renameList, err := d.uploadPhase(ctx, p.Uploads, local, manifestBytes)
	if err != nil {
		return err
	}

	// 10. Rename phase.
	if err := d.renamePhase(ctx, renameList); err != nil {
		return err
	}

	// 11. Delete phase.
	d.deletePhase(ctx, p.Deletes)

	// 12. Purge phase.
	if err := d.purgePhase(ctx); err != nil {
		return err
	}

	// 13. Post-jobs.
	if err := runner.Run(ctx, d.PostJobs); err != nil {
		return &htdeploy.JobError{Job: "post", Err: err}
	}

	// 14. Clear running marker.
	if err := d.Server.RemoveFile(ctx, d.runningMarkerPath()); err != nil {
		return &htdeploy.ServerError{Op: "clearRunningMarker", Path: d.runningMarkerPath(), Err: err}
	}
	return nil
}

// loadManifest tolerates absence and malformed content, treating both
// as an empty FileMap.
func (d *Deployer) loadManifest(ctx context.Context) htdeploy.FileMap {
	tmp, err := os.CreateTemp(d.TempDir, "htdeploy-manifest-*")
	if err != nil {
		return htdeploy.FileMap{}
	}
	tmp.Close()
	defer os.Remove(tmp.Name())

	if err := d.Server.ReadFile(ctx, d.manifestPath(), tmp.Name()); err != nil {
		return htdeploy.FileMap{}
	}

	data, err := os.ReadFile(tmp.Name())
	if err != nil {
		return htdeploy.FileMap{}
	}

	m, err := manifest.Decode(data)
	if err != nil {
		merr := &htdeploy.ManifestError{Err: err}
		d.log("remote manifest is malformed, treating as empty: "+merr.Error(), htdeploy.Warning)
		return htdeploy.FileMap{}
	}
	return m
}

func (d *Deployer) scanLocal() (htdeploy.FileMap, error) {
	if info, err := os.Stat(d.Root); err != nil || !info.IsDir() {
		if err == nil {
			err = errors.Errorf("%s is not a directory", d.Root)
		}
		return nil, &htdeploy.ConfigError{Op: "scan", Err: err}
	}

	s := &scan.Scanner{
		Root:           d.Root,
		IgnorePatterns: d.IgnorePatterns,
		Preprocessor:   d.Preprocessor,
		Logger:         d.Logger,
	}
	m, err := s.Scan()
	if err != nil {
		return nil, &htdeploy.ConfigError{Op: "scan", Err: err}
	}
	return m, nil
}

func (d *Deployer) writeRunningMarker(ctx context.Context) error {
	tmp, err := os.CreateTemp(d.TempDir, "htdeploy-marker-*")
	if err != nil {
		return errors.Wrap(err, "staging running marker")
	}
	defer os.Remove(tmp.Name())
	tmp.Close()

	if err := d.Server.WriteFile(ctx, tmp.Name(), d.runningMarkerPath(), nil); err != nil {
		return &htdeploy.ServerError{Op: "writeRunningMarker", Path: d.runningMarkerPath(), Err: err}
	}
	return nil
}

// uploadPhase implements step 9: it ensures parent directories exist,
// records directory entries, and stages file content (preprocessed,
// or the raw manifestBytes for the manifest's own entry) at
// "<target>.deploytmp". It returns the list of targets to rename, in
// upload order, so the manifest is always renamed last.
func (d *Deployer) uploadPhase(ctx context.Context, uploads []htdeploy.Path, local htdeploy.FileMap, manifestBytes []byte) ([]htdeploy.Path, error) {
	var renameList []htdeploy.Path
	createdDirs := map[htdeploy.Path]bool{}

	ensureDir := func(p htdeploy.Path) error {
		if p == "/" || createdDirs[p] {
			return nil
		}
		if err := d.Server.CreateDir(ctx, p); err != nil {
			return &htdeploy.ServerError{Op: "createDir", Path: p, Err: err}
		}
		createdDirs[p] = true
		return nil
	}

	for _, p := range uploads {
		if err := ensureDir(parentDir(p)); err != nil {
			return nil, err
		}

		if p == d.manifestPath() {
			if err := d.uploadManifest(ctx, p, manifestBytes); err != nil {
				return nil, err
			}
			renameList = append(renameList, p)
			continue
		}

		if local[p] == htdeploy.DIR {
			if err := ensureDir(p); err != nil {
				return nil, err
			}
			d.log("created "+string(p), htdeploy.Success)
			continue
		}

		if err := d.uploadFile(ctx, p); err != nil {
			return nil, err
		}
		renameList = append(renameList, p)
	}

	return renameList, nil
}

func (d *Deployer) uploadFile(ctx context.Context, p htdeploy.Path) error {
	absPath := filepath.Join(d.Root, filepath.FromSlash(string(p)))

	src := absPath
	if d.Preprocessor != nil {
		var err error
		src, err = d.Preprocessor.Preprocess(absPath, string(p))
		if err != nil {
			return &htdeploy.ServerError{Op: "preprocess", Path: p, Err: err}
		}
		if src != absPath {
			defer os.Remove(src)
		}
	}

	tmp := htdeploy.Path(string(p) + htdeploy.TempSuffix)
	err := d.Server.WriteFile(ctx, src, tmp, func(pct int) {
		if prog, ok := d.Logger.(htdeploy.Progress); ok {
			prog.Bytes(pct)
		}
	})
	if err != nil {
		return &htdeploy.ServerError{Op: "writeFile", Path: p, Err: err}
	}
	d.log("uploaded "+string(p), htdeploy.Success)
	return nil
}

func (d *Deployer) uploadManifest(ctx context.Context, p htdeploy.Path, content []byte) error {
	tmp, err := os.CreateTemp(d.TempDir, "htdeploy-upload-manifest-*")
	if err != nil {
		return errors.Wrap(err, "staging manifest upload")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return errors.Wrap(err, "staging manifest upload")
	}
	tmp.Close()

	tmpPath := htdeploy.Path(string(p) + htdeploy.TempSuffix)
	if err := d.Server.WriteFile(ctx, tmp.Name(), tmpPath, nil); err != nil {
		return &htdeploy.ServerError{Op: "writeFile", Path: p, Err: err}
	}
	d.log("uploaded "+string(p), htdeploy.Success)
	return nil
}

// renamePhase implements step 10: every staged upload is renamed onto
// its final target, in the order it was uploaded, so the manifest
// (always last in renameList) is the final, atomic commit point.
func (d *Deployer) renamePhase(ctx context.Context, renameList []htdeploy.Path) error {
	for _, p := range renameList {
		tmp := htdeploy.Path(string(p) + htdeploy.TempSuffix)
		if err := d.Server.RenameFile(ctx, tmp, p); err != nil {
			return &htdeploy.ServerError{Op: "renameFile", Path: p, Err: err}
		}
	}
	return nil
}

// deletePhase implements step 11. Per-entry failures are logged but
// do not abort the deploy.
func (d *Deployer) deletePhase(ctx context.Context, deletes []htdeploy.Path) {
	for _, p := range deletes {
		var err error
		if p.IsDir() {
			err = d.Server.RemoveDir(ctx, p)
		} else {
			err = d.Server.RemoveFile(ctx, p)
		}
		if err != nil {
			d.log(fmt.Sprintf("delete failed for %s: %s", p, err), htdeploy.Error)
			continue
		}
		d.log("deleted "+string(p), htdeploy.Success)
	}
}

// purgePhase implements step 12.
func (d *Deployer) purgePhase(ctx context.Context) error {
	for _, raw := range d.PurgePaths {
		p := htdeploy.Path(raw)
		err := d.Server.Purge(ctx, p, func(entry htdeploy.Path) {
			d.log("purged "+string(entry), htdeploy.Success)
		})
		if err != nil {
			return &htdeploy.ServerError{Op: "purge", Path: p, Err: err}
		}
	}
	return nil
}

func (d *Deployer) logPlan(p plan.Plan) {
	d.log("test mode: no changes made", htdeploy.Info)
	for _, u := range p.Uploads {
		d.log("would upload "+string(u), htdeploy.Info)
	}
	for _, del := range p.Deletes {
		d.log("would delete "+string(del), htdeploy.Info)
	}
}

func (d *Deployer) log(msg string, sev htdeploy.Severity) {
	if d.Logger != nil {
		d.Logger.Log(msg, sev)
	}
}

// parentDir returns the "/"-rooted parent directory of p, or "/" if p
// is already at the root.
func parentDir(p htdeploy.Path) htdeploy.Path {
	s := string(p)
	if p.IsDir() {
		s = strings.TrimSuffix(s, "/")
	}
	idx := strings.LastIndex(s, "/")
	if idx <= 0 {
		return "/"
	}
	return htdeploy.Path(s[:idx+1])
}
