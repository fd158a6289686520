package models

// MediaKind distinguishes deliverable media types.
type MediaKind string

const (
	KindVideo MediaKind = "video"
	KindAudio MediaKind = "audio"
)

// FormatCandidate is one fetchable encoding of a media item. FileSize is
// zero when the source did not report a size; such candidates are never
// selectable because the size ceiling cannot be enforced for them.
type FormatCandidate struct {
	FormatID   string  `json:"format_id"`
	FileSize   int64   `json:"filesize,omitempty"`
	HasVideo   bool    `json:"has_video"`
	HasAudio   bool    `json:"has_audio"`
	Quality    float64 `json:"quality,omitempty"`
	Bitrate    float64 `json:"abr,omitempty"`
	Resolution string  `json:"resolution,omitempty"`
	Ext        string  `json:"ext,omitempty"`
}

// MediaInfo is the result of metadata resolution for one source URL. It is
// immutable once resolved and discarded after format presentation.
type MediaInfo struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	Duration   int               `json:"duration"`
	IsLive     bool              `json:"is_live"`
	Uploader   string            `json:"uploader,omitempty"`
	ViewCount  int64             `json:"view_count,omitempty"`
	UploadDate string            `json:"upload_date,omitempty"`
	Thumbnail  string            `json:"thumbnail,omitempty"`
	Formats    []FormatCandidate `json:"formats"`
}
