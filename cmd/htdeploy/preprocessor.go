package main

import (
	"os"

	"github.com/bobg/htdeploy/config"
	"github.com/bobg/htdeploy/preprocess"
	"github.com/bobg/htdeploy/scan"
)

// newConfigPreprocessor builds the Preprocessor that gates which paths
// are eligible for filtering, per conf.PreprocessGlobs. The filter
// pipeline itself is empty: this package defines the Filter contract but no
// concrete filters, so there is nothing for a YAML config to name yet.
// A deployment embedding this package programmatically can still
// populate Pipeline directly before calling Deploy.
func newConfigPreprocessor(conf *config.Config) scan.Preprocessor {
	tmpDir, err := os.MkdirTemp("", "htdeploy-preprocess")
	if err != nil {
		return nil
	}
	p, err := preprocess.New(tmpDir, conf.PreprocessGlobs, preprocess.Pipeline{})
	if err != nil {
		return nil
	}
	return p
}
