package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/grabbot/grabbot/pkg/models"
)

// Sentinel errors for collaborator failure modes. The orchestrator
// classifies on these with errors.Is.
var (
	ErrResolve       = errors.New("metadata resolution failed")
	ErrTransfer      = errors.New("transfer failed")
	ErrQuotaExceeded = errors.New("file exceeds size limit")
)

// Client shells out to the yt-dlp binary for metadata resolution and byte
// transfer. Both operations honor context cancellation: the subprocess is
// killed when the context ends.
type Client struct {
	binPath     string
	maxFileSize int64
}

// New creates a client for the given yt-dlp binary path. maxFileSize is
// passed through to the downloader so oversize transfers abort early.
func New(binPath string, maxFileSize int64) *Client {
	return &Client{binPath: binPath, maxFileSize: maxFileSize}
}

// Resolve fetches metadata for one source URL without downloading.
func (c *Client) Resolve(ctx context.Context, url string) (*models.MediaInfo, error) {
	args := []string{
		"--dump-single-json",
		"--no-playlist",
		"--no-warnings",
		"--ignore-errors",
		url,
	}

	cmd := exec.CommandContext(ctx, c.binPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s", ErrResolve, firstLine(stderr.String()))
	}

	info, err := parseInfo(stdout.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResolve, err)
	}
	return info, nil
}

// Fetch downloads the selected format into destDir and returns the path of
// the produced file as reported by the downloader. The returned path may be
// empty when the downloader did not report one; callers fall back to
// scanning destDir, which is job-exclusive.
func (c *Client) Fetch(ctx context.Context, url, formatID, destDir string) (string, error) {
	args := []string{
		"--no-playlist",
		"--no-warnings",
		"--quiet",
		"--no-progress",
		"--socket-timeout", "30",
		"--format", formatID,
		"--max-filesize", strconv.FormatInt(c.maxFileSize, 10),
		"--output", destDir + "/%(id)s.%(ext)s",
		"--no-simulate",
		"--print", "after_move:filepath",
		url,
	}

	cmd := exec.CommandContext(ctx, c.binPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if strings.Contains(stderr.String(), "max-filesize") {
			return "", fmt.Errorf("%w: %s", ErrQuotaExceeded, firstLine(stderr.String()))
		}
		return "", fmt.Errorf("%w: %s", ErrTransfer, firstLine(stderr.String()))
	}

	// The downloader may skip the file instead of failing when it exceeds
	// max-filesize; it reports that on stderr.
	if strings.Contains(stderr.String(), "max-filesize") {
		return "", fmt.Errorf("%w: %s", ErrQuotaExceeded, firstLine(stderr.String()))
	}

	return lastLine(stdout.String()), nil
}

// infoJSON mirrors the subset of yt-dlp's JSON output this bot consumes.
type infoJSON struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	Duration   float64      `json:"duration"`
	IsLive     bool         `json:"is_live"`
	Uploader   string       `json:"channel"`
	ViewCount  int64        `json:"view_count"`
	UploadDate string       `json:"upload_date"`
	Thumbnail  string       `json:"thumbnail"`
	Formats    []formatJSON `json:"formats"`
}

type formatJSON struct {
	FormatID   string   `json:"format_id"`
	Filesize   *int64   `json:"filesize"`
	Vcodec     string   `json:"vcodec"`
	Acodec     string   `json:"acodec"`
	Quality    *float64 `json:"quality"`
	ABR        *float64 `json:"abr"`
	Resolution string   `json:"resolution"`
	Ext        string   `json:"ext"`
}

// parseInfo converts raw yt-dlp JSON into the bot's media model. Source
// ordering of formats is preserved; the catalog's tie-break depends on it.
func parseInfo(raw []byte) (*models.MediaInfo, error) {
	var in infoJSON
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	if in.ID == "" {
		return nil, errors.New("metadata has no media id")
	}

	info := &models.MediaInfo{
		ID:         in.ID,
		Title:      in.Title,
		Duration:   int(in.Duration),
		IsLive:     in.IsLive,
		Uploader:   in.Uploader,
		ViewCount:  in.ViewCount,
		UploadDate: in.UploadDate,
		Thumbnail:  in.Thumbnail,
		Formats:    make([]models.FormatCandidate, 0, len(in.Formats)),
	}

	for _, f := range in.Formats {
		cand := models.FormatCandidate{
			FormatID:   f.FormatID,
			HasVideo:   f.Vcodec != "" && f.Vcodec != "none",
			HasAudio:   f.Acodec != "" && f.Acodec != "none",
			Resolution: f.Resolution,
			Ext:        f.Ext,
		}
		if f.Filesize != nil {
			cand.FileSize = *f.Filesize
		}
		if f.Quality != nil {
			cand.Quality = *f.Quality
		}
		if f.ABR != nil {
			cand.Bitrate = *f.ABR
		}
		info.Formats = append(info.Formats, cand)
	}

	return info, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
