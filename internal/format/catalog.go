package format

import (
	"github.com/grabbot/grabbot/pkg/models"
)

// Catalog filters and ranks candidate encodings for a resolved media item.
// Selection is a pure function of the metadata: a candidate is eligible only
// when its declared size is known and within the ceiling, since declared
// sizes are the only way to enforce the size ceiling before transfer.
type Catalog struct {
	sizeCeiling int64
}

// NewCatalog creates a catalog with the given size ceiling in bytes.
func NewCatalog(sizeCeiling int64) *Catalog {
	return &Catalog{sizeCeiling: sizeCeiling}
}

// BestVideo returns the highest-quality muxed video candidate under the size
// ceiling, or nil when no candidate qualifies. Only candidates carrying both
// a video and an audio track are considered, which avoids a separate mux
// step after download. Ties keep the first-encountered candidate.
func (c *Catalog) BestVideo(info *models.MediaInfo) *models.FormatCandidate {
	var best *models.FormatCandidate
	for i := range info.Formats {
		f := &info.Formats[i]
		if !c.eligible(f) {
			continue
		}
		if !f.HasVideo || !f.HasAudio {
			continue
		}
		if best == nil || f.Quality > best.Quality {
			best = f
		}
	}
	return copyCandidate(best)
}

// BestAudio returns the highest-bitrate audio-only candidate under the size
// ceiling, or nil when no candidate qualifies. Ties keep the
// first-encountered candidate.
func (c *Catalog) BestAudio(info *models.MediaInfo) *models.FormatCandidate {
	var best *models.FormatCandidate
	for i := range info.Formats {
		f := &info.Formats[i]
		if !c.eligible(f) {
			continue
		}
		if f.HasVideo || !f.HasAudio {
			continue
		}
		if best == nil || f.Bitrate > best.Bitrate {
			best = f
		}
	}
	return copyCandidate(best)
}

// eligible requires a known declared size within the ceiling.
func (c *Catalog) eligible(f *models.FormatCandidate) bool {
	return f.FileSize > 0 && f.FileSize <= c.sizeCeiling
}

func copyCandidate(f *models.FormatCandidate) *models.FormatCandidate {
	if f == nil {
		return nil
	}
	cp := *f
	return &cp
}
