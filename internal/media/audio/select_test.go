package audio

import (
	"testing"

	"revoice/internal/media/ffprobe"
)

func TestSelectPrefersSourceLanguage(t *testing.T) {
	streams := []ffprobe.Stream{
		{Index: 0, CodecType: "video"},
		{
			Index:       1,
			CodecType:   "audio",
			CodecName:   "ac3",
			Channels:    6,
			Tags:        map[string]string{"language": "ger", "title": "Deutsch 5.1"},
			Disposition: map[string]int{"default": 1},
		},
		{
			Index:     2,
			CodecType: "audio",
			CodecName: "aac",
			Channels:  2,
			Tags:      map[string]string{"language": "eng"},
		},
	}

	sel := Select(streams, "en")
	if sel.PrimaryIndex != 2 || sel.Ordinal != 1 {
		t.Fatalf("expected English stream (index 2, ordinal 1), got index %d ordinal %d", sel.PrimaryIndex, sel.Ordinal)
	}
	if sel.Candidates != 2 {
		t.Fatalf("candidates = %d", sel.Candidates)
	}
	if got := sel.PrimaryLabel(); got != "eng | aac | 2ch" {
		t.Fatalf("label = %q", got)
	}
}

func TestSelectSkipsCommentary(t *testing.T) {
	streams := []ffprobe.Stream{
		{
			Index:       0,
			CodecType:   "audio",
			CodecName:   "aac",
			Channels:    2,
			Tags:        map[string]string{"language": "eng", "title": "Director's Commentary"},
			Disposition: map[string]int{"default": 1},
		},
		{
			Index:     1,
			CodecType: "audio",
			CodecName: "aac",
			Channels:  2,
			Tags:      map[string]string{"language": "eng", "title": "Main"},
		},
	}
	if sel := Select(streams, "en"); sel.PrimaryIndex != 1 {
		t.Fatalf("expected main track, got %d", sel.PrimaryIndex)
	}
}

func TestSelectWithoutPreferenceUsesDefault(t *testing.T) {
	streams := []ffprobe.Stream{
		{Index: 0, CodecType: "audio", CodecName: "aac", Channels: 2},
		{Index: 1, CodecType: "audio", CodecName: "aac", Channels: 2, Disposition: map[string]int{"default": 1}},
	}
	if sel := Select(streams, ""); sel.Ordinal != 1 {
		t.Fatalf("expected default-flagged stream, got ordinal %d", sel.Ordinal)
	}
}

func TestSelectTiesFavorEarlierTrack(t *testing.T) {
	streams := []ffprobe.Stream{
		{Index: 3, CodecType: "audio", CodecName: "aac", ChannelLayout: "stereo"},
		{Index: 4, CodecType: "audio", CodecName: "aac", ChannelLayout: "stereo"},
	}
	if sel := Select(streams, "fr"); sel.PrimaryIndex != 3 || sel.Ordinal != 0 {
		t.Fatalf("expected first stream, got %+v", sel)
	}
}

func TestSelectNoAudio(t *testing.T) {
	sel := Select([]ffprobe.Stream{{Index: 0, CodecType: "video"}}, "en")
	if sel.Found() || sel.PrimaryLabel() != "" || sel.Ordinal != -1 {
		t.Fatalf("expected empty selection, got %+v", sel)
	}
}

func TestChannelCountFromLayout(t *testing.T) {
	tests := []struct {
		layout string
		want   int
	}{
		{"mono", 1},
		{"stereo", 2},
		{"5.1(side)", 6},
		{"7.1", 8},
		{"", 0},
	}
	for _, tt := range tests {
		if got := channelCount(ffprobe.Stream{ChannelLayout: tt.layout}); got != tt.want {
			t.Errorf("channelCount(%q) = %d, want %d", tt.layout, got, tt.want)
		}
	}
}
