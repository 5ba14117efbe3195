// Package main hosts the revoice CLI entrypoint and command graph.
//
// The Cobra-based command tree runs dubbing stages against local sessions
// (upload, transcribe, translate, generate, or all of them via dub), inspects
// and removes sessions, reports dependency status, serves the HTTP API, and
// scaffolds configuration. Configuration resolution and logger setup live in
// commandContext so subcommands only describe their own flags and output.
//
// Keep this package lean: new behavior belongs in internal/pipeline or the
// services first, then gets surfaced here.
package main
