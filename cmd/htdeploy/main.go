// Command htdeploy runs a one-way deployment: it syncs a local
// directory tree to a remote tree reachable through a transport.Server
// backend, using a content-addressed manifest to detect changes.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/bobg/subcmd"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/bobg/htdeploy/logging"
	_ "github.com/bobg/htdeploy/transport/gcs"
	_ "github.com/bobg/htdeploy/transport/httpremote"
	_ "github.com/bobg/htdeploy/transport/localfs"
)

func main() {
	log.SetFlags(0)

	configPath := flag.String("config", "htdeploy.yaml", "path to deploy config file")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := maincmd{
		configPath: *configPath,
		logger:     logging.NewStderr(),
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt)
		select {
		case <-egCtx.Done():
			return nil
		case sig := <-sigCh:
			cancel()
			return errors.Errorf("received signal %s", sig)
		}
	})
	eg.Go(func() error {
		defer cancel()
		return subcmd.Run(egCtx, c, flag.Args())
	})

	if err := eg.Wait(); err != nil {
		log.Fatal(err)
	}
}
