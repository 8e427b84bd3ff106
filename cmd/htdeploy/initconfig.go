package main

import (
	"context"
	"os"

	"github.com/pkg/errors"
)

const starterConfig = `root: /path/to/local/site
manifest_name: .htdeployment
allow_delete: false
test_mode: false
ignore:
  - .git/
  - "*.log"
transport:
  type: localfs
  params:
    root: /path/to/remote/staging
pre_jobs: []
post_jobs: []
purge: []
`

// initCmd writes a starter config file to get a new deploy target
// going. It refuses to overwrite an existing file.
func (c maincmd) initCmd(ctx context.Context, out string, args []string) error {
	if _, err := os.Stat(out); err == nil {
		return errors.Errorf("%s already exists", out)
	}

	return os.WriteFile(out, []byte(starterConfig), 0644)
}
