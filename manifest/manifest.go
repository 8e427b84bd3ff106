// Package manifest encodes and decodes the remote manifest: a raw
// DEFLATE stream wrapping LF-separated "<fingerprint>=<path>" records.
package manifest

import (
	"bytes"
	"compress/flate"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/bobg/htdeploy"
)

// dirTag is the on-wire tag for a directory entry.
const dirTag = "1"

// Encode serializes m as a raw DEFLATE stream at maximum compression.
// Directories are written with the literal tag "1"; files are written
// with their fingerprint. Record order in the decompressed payload is
// the lexicographic order of paths, for reproducibility, though order
// carries no semantic meaning.
func Encode(m htdeploy.FileMap) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, errors.Wrap(err, "creating flate writer")
	}

	for _, p := range m.Paths() {
		fp := m[p]
		tag := string(fp)
		if fp == htdeploy.DIR {
			tag = dirTag
		}
		if _, err := io.WriteString(w, tag+"="+string(p)+"\n"); err != nil {
			return nil, errors.Wrap(err, "writing manifest record")
		}
	}

	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "closing flate writer")
	}
	return buf.Bytes(), nil
}

// Decode inflates b and parses its LF-separated "<tag>=<path>" records
// into a FileMap. Lines with no "=" are ignored. On any error the
// caller should treat the manifest as empty rather than abort.
func Decode(b []byte) (htdeploy.FileMap, error) {
	r := flate.NewReader(bytes.NewReader(b))
	defer r.Close()

	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "inflating manifest")
	}

	m := make(htdeploy.FileMap)
	for _, line := range strings.Split(string(payload), "\n") {
		if line == "" {
			continue
		}
		tag, path, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		fp := htdeploy.Fingerprint(tag)
		if tag == dirTag {
			fp = htdeploy.DIR
		}
		m[htdeploy.Path(path)] = fp
	}
	return m, nil
}
