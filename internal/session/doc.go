// Package session persists dubbing sessions and lays out their workspaces.
//
// A session is one video moving through upload, transcription, translation,
// and generation. Metadata lives in a SQLite database (modernc.org/sqlite)
// under the sessions directory; artifacts live in a per-session directory:
//
//	<sessions_dir>/<id>/
//	  original/                    uploaded video
//	  transcriptions/              original_transcription.json, translated_transcription.json
//	  segments/                    audio.wav, report.json, work/ (attempt clips)
//	  final_video.mp4
//
// Stages that mutate a session hold its exclusive file lock (gofrs/flock) so
// two generations cannot race on the same workspace.
package session
