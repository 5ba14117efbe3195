package audio

import (
	"strconv"
	"strings"

	"revoice/internal/language"
	"revoice/internal/media/ffprobe"
)

// Selection identifies the chosen speech stream.
type Selection struct {
	Primary ffprobe.Stream
	// PrimaryIndex is the container stream index, -1 when there is no audio.
	PrimaryIndex int
	// Ordinal is the position among audio streams only, as ffmpeg's 0:a:N
	// addresses it.
	Ordinal int
	// Candidates counts the audio streams considered.
	Candidates int
}

// Found reports whether any audio stream was selected.
func (s Selection) Found() bool {
	return s.PrimaryIndex >= 0
}

// PrimaryLabel returns a human-readable summary of the selected stream.
func (s Selection) PrimaryLabel() string {
	if !s.Found() {
		return ""
	}
	return formatStreamSummary(s.Primary)
}

// Select returns the stream most likely to carry the main dialogue in
// preferLanguage. An empty preferLanguage ranks on the other signals only.
func Select(streams []ffprobe.Stream, preferLanguage string) Selection {
	candidates := buildCandidates(streams, language.ToISO2(preferLanguage))
	if len(candidates) == 0 {
		return Selection{PrimaryIndex: -1, Ordinal: -1}
	}
	best := candidates[0]
	bestScore := scoreSpeech(best)
	for _, cand := range candidates[1:] {
		if score := scoreSpeech(cand); score > bestScore {
			best, bestScore = cand, score
		}
	}
	return Selection{
		Primary:      best.stream,
		PrimaryIndex: best.stream.Index,
		Ordinal:      best.order,
		Candidates:   len(candidates),
	}
}

// candidate captures the derived metadata used for ranking.
type candidate struct {
	stream         ffprobe.Stream
	order          int
	preferred      bool
	secondary      bool
	isLossless     bool
	channels       int
	defaultFlagged bool
}

func scoreSpeech(cand candidate) float64 {
	score := 0.0
	if cand.preferred {
		score += 1000
	}
	if cand.secondary {
		score -= 500
	}
	if cand.defaultFlagged {
		score += 50
	}
	switch {
	case cand.channels >= 2:
		score += 20
	case cand.channels == 1:
		score += 10
	}
	if cand.isLossless {
		score += 5
	}
	score -= float64(cand.order) * 0.1
	return score
}

func buildCandidates(streams []ffprobe.Stream, prefer string) []candidate {
	var result []candidate
	order := 0
	for _, stream := range streams {
		if !strings.EqualFold(stream.CodecType, "audio") {
			continue
		}
		title := normalizeTitle(stream.Tags)
		cand := candidate{
			stream:         stream,
			order:          order,
			secondary:      isSecondaryTitle(title),
			isLossless:     detectLossless(stream),
			channels:       channelCount(stream),
			defaultFlagged: stream.Disposition["default"] == 1,
		}
		if prefer != "" {
			cand.preferred = language.ToISO2(normalizeLanguage(stream.Tags)) == prefer
		}
		result = append(result, cand)
		order++
	}
	return result
}

// secondaryKeywords mark tracks that are not the main dialogue.
var secondaryKeywords = []string{"commentary", "director", "description", "descriptive", "narration", "karaoke", "music only", "isolated score"}

func isSecondaryTitle(title string) bool {
	for _, keyword := range secondaryKeywords {
		if strings.Contains(title, keyword) {
			return true
		}
	}
	return false
}

func normalizeLanguage(tags map[string]string) string {
	for _, key := range []string{"language", "LANGUAGE", "Language", "language_ietf", "LANG"} {
		if value, ok := tags[key]; ok {
			return strings.ToLower(strings.TrimSpace(value))
		}
	}
	return ""
}

func normalizeTitle(tags map[string]string) string {
	for _, key := range []string{"title", "TITLE", "handler_name", "HANDLER_NAME"} {
		if value, ok := tags[key]; ok {
			return strings.ToLower(strings.TrimSpace(value))
		}
	}
	return ""
}

func channelCount(stream ffprobe.Stream) int {
	if stream.Channels > 0 {
		return stream.Channels
	}
	layout := strings.ToLower(strings.TrimSpace(stream.ChannelLayout))
	switch {
	case layout == "":
		return 0
	case layout == "mono":
		return 1
	case layout == "stereo":
		return 2
	}
	total := 0
	for _, part := range strings.Split(layout, ".") {
		part = strings.Trim(part, "abcdefghijklmnopqrstuvwxyz ()")
		if n, err := strconv.Atoi(part); err == nil {
			total += n
		}
	}
	return total
}

func detectLossless(stream ffprobe.Stream) bool {
	name := strings.ToLower(stream.CodecName)
	long := strings.ToLower(stream.CodecLong)
	switch name {
	case "truehd", "flac", "mlp", "alac", "pcm_s16le", "pcm_s24le", "pcm_s32le", "pcm_bluray", "pcm_s24be", "pcm_s16be":
		return true
	}
	return strings.Contains(long, "lossless") || strings.Contains(long, "master audio")
}

func formatStreamSummary(stream ffprobe.Stream) string {
	parts := make([]string, 0, 4)
	if lang := normalizeLanguage(stream.Tags); lang != "" {
		parts = append(parts, lang)
	}
	codec := stream.CodecLong
	if codec == "" {
		codec = stream.CodecName
	}
	if codec != "" {
		parts = append(parts, codec)
	}
	if channels := channelCount(stream); channels > 0 {
		parts = append(parts, strconv.Itoa(channels)+"ch")
	}
	if title := strings.TrimSpace(stream.Tags["title"]); title != "" {
		parts = append(parts, title)
	}
	if len(parts) == 0 {
		return "audio"
	}
	return strings.Join(parts, " | ")
}
