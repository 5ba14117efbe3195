// Package pipeline runs the dubbing stages against a session.
//
// Each stage (transcribe, translate, generate) takes the session lock, marks
// the session as processing, does its work inside the session workspace, and
// persists either the done status or a failure classified by
// services.FailureKind. Stage context carries the session id, the stage
// name, and a correlation id so every log line of a run can be joined.
//
// Capabilities are interfaces injected through Deps; Build wires the real
// ffmpeg, ffprobe, transcription, translation, and synthesis backends from
// config.
package pipeline
