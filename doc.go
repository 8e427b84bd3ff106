// Package htdeploy implements the synchronization core of a one-way
// deployment engine.
//
// A deploy reconciles a local directory tree with a remote directory tree
// reachable through a transport.Server: after a successful run, the
// remote tree matches the local tree with respect to file contents and
// presence, modulo ignore patterns.
//
// The core pieces are:
//
//   - pattern, which decides whether a path is ignored or eligible for
//     preprocessing;
//   - scan, which walks a local tree and produces a path-to-fingerprint
//     map;
//   - preprocess, the extension-keyed filter pipeline applied to file
//     content before it is fingerprinted or uploaded;
//   - manifest, which encodes and decodes the compressed file list
//     persisted on the remote;
//   - job, which runs pre- and post-deploy jobs;
//   - plan, which diffs a local map against a remote map to produce an
//     ordered set of uploads and deletes;
//   - transport, the pluggable remote-server abstraction, with concrete
//     backends for local staging, HTTP, and Google Cloud Storage; and
//   - deployctl, which orchestrates all of the above into the full
//     synchronization protocol.
//
// This module does not attempt bidirectional sync, conflict detection
// from concurrent remote writers, resumable uploads across process
// restarts, partial-tree synchronization, or permission/ownership/
// timestamp/symlink preservation.
package htdeploy
