package main

import (
	"context"

	"github.com/pkg/errors"
)

// planCmd runs the deploy in test mode: it reports what a real deploy
// would upload and delete without mutating the remote tree.
func (c maincmd) planCmd(ctx context.Context, args []string) error {
	d, err := c.newDeployer(ctx)
	if err != nil {
		return errors.Wrap(err, "building deployer")
	}
	d.TestMode = true

	return d.Deploy(ctx)
}
