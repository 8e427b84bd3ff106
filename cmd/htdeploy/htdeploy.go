package main

import (
	"context"

	"github.com/bobg/subcmd"
	"github.com/pkg/errors"

	"github.com/bobg/htdeploy/config"
	"github.com/bobg/htdeploy/logging"
	"github.com/bobg/htdeploy/transport"
)

// maincmd is the shared state every subcommand reads from: the path
// to the config file and the console logger. Neither the config nor
// the transport backend is loaded until a subcommand that needs one
// asks for it, so init-config can run against a directory with no
// htdeploy.yaml yet.
type maincmd struct {
	configPath string
	logger     *logging.Console
}

func (c maincmd) Subcmds() map[string]subcmd.Subcmd {
	return map[string]subcmd.Subcmd{
		"deploy": {F: c.deployCmd},
		"plan":   {F: c.planCmd},
		"init-config": {
			F: c.initCmd,
			Params: subcmd.Params(
				"out", subcmd.String, "htdeploy.yaml", "path to write",
			),
		},
	}
}

// loadConfigAndServer reads the config file and constructs its
// configured transport backend. Called lazily by the subcommands that
// actually touch the remote tree.
func (c maincmd) loadConfigAndServer(ctx context.Context) (*config.Config, transport.Server, error) {
	conf, err := config.Load(c.configPath)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "loading %s", c.configPath)
	}

	server, err := transport.Create(ctx, conf.Transport.Type, conf.Transport.Params)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "creating %s transport", conf.Transport.Type)
	}

	return conf, server, nil
}
