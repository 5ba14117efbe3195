// Package whisperx runs WhisperX through uvx and loads its JSON output.
//
// The service builds the uvx argument list from Config (model, CUDA, VAD
// method, Hugging Face token) and reads sentence-resolution segments plus
// the detected language back from the JSON file WhisperX writes next to the
// source. Audio extraction is the caller's job; the input is expected to be
// a mono 16 kHz WAV.
package whisperx
