package main

import (
	"context"
	"os"

	"github.com/pkg/errors"

	"github.com/bobg/htdeploy/deployctl"
)

// deployCmd runs the full synchronization protocol.
func (c maincmd) deployCmd(ctx context.Context, args []string) error {
	d, err := c.newDeployer(ctx)
	if err != nil {
		return errors.Wrap(err, "building deployer")
	}

	return d.Deploy(ctx)
}

func (c maincmd) newDeployer(ctx context.Context) (*deployctl.Deployer, error) {
	conf, server, err := c.loadConfigAndServer(ctx)
	if err != nil {
		return nil, err
	}

	preJobs, err := conf.PreJobList()
	if err != nil {
		return nil, errors.Wrap(err, "parsing pre_jobs")
	}
	postJobs, err := conf.PostJobList()
	if err != nil {
		return nil, errors.Wrap(err, "parsing post_jobs")
	}

	tmpDir, err := os.MkdirTemp("", "htdeploy")
	if err != nil {
		return nil, errors.Wrap(err, "creating temp directory")
	}

	return &deployctl.Deployer{
		Server:         server,
		Logger:         c.logger,
		Root:           conf.Root,
		ManifestName:   conf.ManifestName,
		AllowDelete:    conf.AllowDelete,
		TestMode:       conf.TestMode,
		IgnorePatterns: conf.IgnorePatterns,
		PurgePaths:     conf.PurgePaths,
		PreJobs:        preJobs,
		PostJobs:       postJobs,
		Preprocessor:   newConfigPreprocessor(conf),
		TempDir:        tmpDir,
	}, nil
}
