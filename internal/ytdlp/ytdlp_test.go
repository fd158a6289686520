package ytdlp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleInfo = `{
	"id": "dQw4w9WgXcQ",
	"title": "Sample Video",
	"duration": 212.0,
	"is_live": false,
	"channel": "Sample Channel",
	"view_count": 1234567,
	"upload_date": "20091025",
	"thumbnail": "https://example.com/thumb.jpg",
	"formats": [
		{"format_id": "140", "filesize": 3456789, "vcodec": "none", "acodec": "mp4a.40.2", "abr": 129.5, "ext": "m4a"},
		{"format_id": "18", "filesize": 12345678, "vcodec": "avc1.42001E", "acodec": "mp4a.40.2", "quality": 360.0, "resolution": "640x360", "ext": "mp4"},
		{"format_id": "137", "filesize": null, "vcodec": "avc1.640028", "acodec": "none", "quality": 1080.0, "resolution": "1920x1080", "ext": "mp4"}
	]
}`

func TestParseInfo(t *testing.T) {
	info, err := parseInfo([]byte(sampleInfo))
	require.NoError(t, err)

	assert.Equal(t, "dQw4w9WgXcQ", info.ID)
	assert.Equal(t, "Sample Video", info.Title)
	assert.Equal(t, 212, info.Duration)
	assert.False(t, info.IsLive)
	assert.Equal(t, "Sample Channel", info.Uploader)
	assert.Equal(t, int64(1234567), info.ViewCount)
	assert.Equal(t, "20091025", info.UploadDate)
	require.Len(t, info.Formats, 3)

	// Audio-only candidate
	audio := info.Formats[0]
	assert.Equal(t, "140", audio.FormatID)
	assert.False(t, audio.HasVideo)
	assert.True(t, audio.HasAudio)
	assert.Equal(t, int64(3456789), audio.FileSize)
	assert.Equal(t, 129.5, audio.Bitrate)

	// Muxed candidate
	muxed := info.Formats[1]
	assert.True(t, muxed.HasVideo)
	assert.True(t, muxed.HasAudio)
	assert.Equal(t, 360.0, muxed.Quality)

	// Video-only candidate with unknown size
	videoOnly := info.Formats[2]
	assert.True(t, videoOnly.HasVideo)
	assert.False(t, videoOnly.HasAudio)
	assert.Equal(t, int64(0), videoOnly.FileSize)
}

func TestParseInfoPreservesFormatOrder(t *testing.T) {
	info, err := parseInfo([]byte(sampleInfo))
	require.NoError(t, err)

	ids := make([]string, 0, len(info.Formats))
	for _, f := range info.Formats {
		ids = append(ids, f.FormatID)
	}
	assert.Equal(t, []string{"140", "18", "137"}, ids)
}

func TestParseInfoLiveStream(t *testing.T) {
	info, err := parseInfo([]byte(`{"id": "live1", "title": "Live", "is_live": true, "formats": []}`))
	require.NoError(t, err)
	assert.True(t, info.IsLive)
}

func TestParseInfoRejectsGarbage(t *testing.T) {
	_, err := parseInfo([]byte("not json"))
	assert.Error(t, err)
}

func TestParseInfoRejectsMissingID(t *testing.T) {
	_, err := parseInfo([]byte(`{"title": "no id"}`))
	assert.Error(t, err)
}

func TestLineHelpers(t *testing.T) {
	assert.Equal(t, "first", firstLine("first\nsecond\n"))
	assert.Equal(t, "only", firstLine("  only  "))
	assert.Equal(t, "last", lastLine("first\nsecond\nlast\n\n"))
	assert.Equal(t, "", lastLine("   \n  "))
}
