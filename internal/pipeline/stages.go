package pipeline

import (
	"context"
	"os"

	"revoice/internal/dub"
	"revoice/internal/logging"
	"revoice/internal/media/audio"
	"revoice/internal/media/ffmpeg"
	"revoice/internal/media/ffprobe"
	"revoice/internal/media/wavio"
	"revoice/internal/services"
	"revoice/internal/services/transcribe"
	"revoice/internal/session"
)

// Transcribe extracts speech audio from the session video and writes
// original_transcription.json.
func (p *Pipeline) Transcribe(ctx context.Context, id string) (*session.Session, error) {
	return p.runStage(ctx, id, "transcribe", session.StatusTranscribing, session.StatusTranscribed,
		func(ctx context.Context, sess *session.Session, ws session.Workspace) error {
			video, err := ws.FindVideo()
			if err != nil {
				return err
			}
			probe, err := p.deps.Prober.Inspect(ctx, video)
			if err != nil {
				return services.Wrap(services.ErrExternalTool, "transcribe", "probe", video, err)
			}
			track, err := p.speechTrack(ctx, probe, p.cfg.Transcription.Language)
			if err != nil {
				return err
			}
			speech := ws.SpeechAudio()
			defer removeQuietly(speech)
			if err := p.deps.Media.ExtractAudio(ctx, video, speech, SpeechSampleRate, track.Ordinal); err != nil {
				return err
			}
			transcript, err := p.deps.Transcriber.Transcribe(ctx, speech)
			if err != nil {
				return err
			}
			if err := transcribe.Save(ws.OriginalTranscript(), transcript); err != nil {
				return services.Wrap(services.ErrTransient, "transcribe", "save", ws.OriginalTranscript(), err)
			}
			sess.SourceLanguage = transcript.Language
			sess.SegmentCount = len(transcript.Segments)
			return nil
		})
}

// Translate renders the original transcript into target and writes
// translated_transcription.json.
func (p *Pipeline) Translate(ctx context.Context, id, target string) (*session.Session, error) {
	return p.runStage(ctx, id, "translate", session.StatusTranslating, session.StatusTranslated,
		func(ctx context.Context, sess *session.Session, ws session.Workspace) error {
			original, err := transcribe.Load(ws.OriginalTranscript())
			if err != nil {
				return err
			}
			translated, err := p.deps.Translator.TranslateTranscript(ctx, original, target)
			if err != nil {
				return err
			}
			if err := transcribe.Save(ws.TranslatedTranscript(), translated); err != nil {
				return services.Wrap(services.ErrTransient, "translate", "save", ws.TranslatedTranscript(), err)
			}
			sess.TargetLanguage = translated.Language
			sess.SegmentCount = len(translated.Segments)
			return nil
		})
}

// GenerateResult is the outcome of a generation stage.
type GenerateResult struct {
	Session    *session.Session
	Report     dub.Report
	FinalVideo string
	Mixed      bool
}

// Generate synthesizes the dubbed track from the translated transcript,
// optionally ducks the original audio under it, and muxes final_video.mp4.
func (p *Pipeline) Generate(ctx context.Context, id string) (GenerateResult, error) {
	var result GenerateResult
	sess, err := p.runStage(ctx, id, "generate", session.StatusGenerating, session.StatusCompleted,
		func(ctx context.Context, sess *session.Session, ws session.Workspace) error {
			logger := logging.WithContext(ctx, p.logger)

			translated, err := transcribe.Load(ws.TranslatedTranscript())
			if err != nil {
				return err
			}
			video, err := ws.FindVideo()
			if err != nil {
				return err
			}
			probe, err := p.deps.Prober.Inspect(ctx, video)
			if err != nil {
				return services.Wrap(services.ErrExternalTool, "generate", "probe", video, err)
			}
			duration := probe.MediaDuration()
			if duration <= 0 {
				return services.Wrap(services.ErrInput, "generate", "probe", "video has no duration", nil)
			}

			opts, err := dub.OptionsFromConfig(p.cfg, ws.AttemptsDir())
			if err != nil {
				return err
			}
			engine, err := dub.NewEngine(p.deps.Synthesizer, opts, p.logger)
			if err != nil {
				return err
			}
			run, err := engine.Run(ctx, translated.Segments, duration, ws.TrackPath())
			defer removeEmptyDir(ws.AttemptsDir())
			if err != nil {
				return err
			}
			if err := dub.WriteReport(ws.ReportPath(), run.Report); err != nil {
				return services.Wrap(services.ErrTransient, "generate", "write report", ws.ReportPath(), err)
			}

			muxAudio := ws.TrackPath()
			defer removeQuietly(ws.OriginalAudio())
			defer removeQuietly(ws.MixedAudio())
			if p.cfg.Mixing.Enabled {
				if selection := audio.Select(probe.Streams, sess.SourceLanguage); !selection.Found() {
					logging.WarnWithContext(logger, "video has no audio to duck; muxing dub alone", "mix_skipped",
						logging.String(logging.FieldImpact, "final video carries only the dubbed voice"),
					)
				} else {
					if err := p.mix(ctx, video, selection.Ordinal, ws, run.Track.Audio); err != nil {
						return err
					}
					muxAudio = ws.MixedAudio()
					result.Mixed = true
				}
			}

			if err := p.deps.Media.Mux(ctx, ffmpeg.MuxRequest{
				VideoPath:  video,
				AudioPath:  muxAudio,
				OutputPath: ws.FinalVideo(),
				Language:   translated.Language,
			}); err != nil {
				return err
			}

			sess.TargetLanguage = translated.Language
			sess.DurationSeconds = duration
			sess.SegmentCount = len(translated.Segments)
			sess.DegradedCount = run.Report.Degraded()
			sess.OverrunCount = len(run.Report.Overruns)
			result.Report = run.Report
			result.FinalVideo = ws.FinalVideo()
			return nil
		})
	result.Session = sess
	return result, err
}

func (p *Pipeline) mix(ctx context.Context, video string, audioStream int, ws session.Workspace, track dub.Audio) error {
	if err := p.deps.Media.ExtractAudio(ctx, video, ws.OriginalAudio(), track.SampleRate, audioStream); err != nil {
		return err
	}
	samples, rate, err := wavio.Read(ws.OriginalAudio())
	if err != nil {
		return services.Wrap(services.ErrMux, "generate", "read original audio", ws.OriginalAudio(), err)
	}
	mixed, err := dub.Mix(dub.Audio{SampleRate: rate, Samples: samples}, track, p.cfg.Mixing.DuckDB)
	if err != nil {
		return err
	}
	if err := wavio.WriteAtomic(ws.MixedAudio(), mixed.Samples, mixed.SampleRate); err != nil {
		return services.Wrap(services.ErrTransient, "generate", "write mix", ws.MixedAudio(), err)
	}
	return nil
}

// speechTrack picks the audio stream to transcribe.
func (p *Pipeline) speechTrack(ctx context.Context, probe ffprobe.Result, prefer string) (audio.Selection, error) {
	selection := audio.Select(probe.Streams, prefer)
	if !selection.Found() {
		return selection, services.Wrap(services.ErrInput, "transcribe", "select audio", "video has no audio stream", nil)
	}
	if selection.Candidates > 1 {
		logging.WithContext(ctx, p.logger).Info("selected speech track",
			logging.String(logging.FieldEventType, "audio_track_selected"),
			logging.String("track", selection.PrimaryLabel()),
			logging.Int("stream_index", selection.PrimaryIndex),
			logging.Int("candidates", selection.Candidates),
		)
	}
	return selection, nil
}

// DubRequest runs every stage for one video.
type DubRequest struct {
	Name      string
	VideoPath string
	Target    string
}

// Dub uploads a video and runs transcribe, translate, and generate.
func (p *Pipeline) Dub(ctx context.Context, req DubRequest) (GenerateResult, error) {
	sess, err := p.UploadFile(ctx, req.Name, req.VideoPath)
	if err != nil {
		return GenerateResult{}, err
	}
	if sess, err = p.Transcribe(ctx, sess.ID); err != nil {
		return GenerateResult{Session: sess}, err
	}
	if sess, err = p.Translate(ctx, sess.ID, req.Target); err != nil {
		return GenerateResult{Session: sess}, err
	}
	return p.Generate(ctx, sess.ID)
}

// removeQuietly deletes a stage temporary; a missing file is fine.
func removeQuietly(path string) {
	_ = os.Remove(path)
}

// removeEmptyDir drops the attempts dir once its clips were released.
func removeEmptyDir(path string) {
	_ = os.Remove(path)
}
