// Package probe reads and strips video container metadata on the service
// side. FFmpeg tools are used when installed; otherwise a built-in
// ISO-BMFF (MP4/MOV) reader takes over.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/ankit-chaubey/media-metadata-scrubber/core"
)

// Prober reads container and stream fields from the file at path.
type Prober interface {
	Probe(ctx context.Context, path string) ([]core.MetaField, error)
}

// Stripper writes a copy of in to out without container metadata. Streams
// are copied, never re-encoded.
type Stripper interface {
	Strip(ctx context.Context, in, out string) error
}

// ErrUnsupportedContainer is returned by the built-in reader for anything
// that is not ISO-BMFF.
var ErrUnsupportedContainer = errors.New("unsupported container")

// Detect picks FFmpeg tools when both binaries resolve and falls back to
// the built-in MP4 implementation otherwise.
func Detect(ffprobePath, ffmpegPath string, log *slog.Logger) (Prober, Stripper) {
	if log == nil {
		log = slog.Default()
	}
	probeBin, perr := exec.LookPath(orDefault(ffprobePath, "ffprobe"))
	mpegBin, merr := exec.LookPath(orDefault(ffmpegPath, "ffmpeg"))
	if perr != nil || merr != nil {
		log.Warn("ffmpeg tools not found, using built-in MP4 support", "ffprobe_error", perr, "ffmpeg_error", merr)
		return MP4{}, MP4{}
	}
	log.Info("using ffmpeg tools", "ffprobe", probeBin, "ffmpeg", mpegBin)
	return FFProbe{Path: probeBin}, FFmpeg{Path: mpegBin}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// ──────────────────────────────────────────────────────────────────────────────
// ffprobe
// ──────────────────────────────────────────────────────────────────────────────

// FFProbe runs ffprobe and formats its JSON report.
type FFProbe struct {
	Path string
}

type ffprobeStream struct {
	CodecType     string            `json:"codec_type"`
	CodecName     string            `json:"codec_name"`
	Profile       string            `json:"profile"`
	Width         int               `json:"width"`
	Height        int               `json:"height"`
	AvgFrameRate  string            `json:"avg_frame_rate"`
	RFrameRate    string            `json:"r_frame_rate"`
	BitRate       string            `json:"bit_rate"`
	SampleRate    string            `json:"sample_rate"`
	Channels      int               `json:"channels"`
	ChannelLayout string            `json:"channel_layout"`
	Tags          map[string]string `json:"tags"`
}

type ffprobeReport struct {
	Streams []ffprobeStream `json:"streams"`
	Format  struct {
		FormatName     string            `json:"format_name"`
		FormatLongName string            `json:"format_long_name"`
		Duration       string            `json:"duration"`
		BitRate        string            `json:"bit_rate"`
		Tags           map[string]string `json:"tags"`
	} `json:"format"`
}

func (p FFProbe) Probe(ctx context.Context, path string) ([]core.MetaField, error) {
	cmd := exec.CommandContext(ctx, orDefault(p.Path, "ffprobe"),
		"-v", "error", "-print_format", "json", "-show_format", "-show_streams", path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, commandError("ffprobe", err, stderr.String())
	}
	var rep ffprobeReport
	if err := json.Unmarshal(out, &rep); err != nil {
		return nil, fmt.Errorf("ffprobe: decoding report: %w", err)
	}
	return describe(&rep), nil
}

// describe flattens a report into display fields: container first, then
// the first video and audio streams, then tags sorted by key.
func describe(rep *ffprobeReport) []core.MetaField {
	var out fieldList
	f := rep.Format
	out.add("Container", orDefault(f.FormatLongName, f.FormatName))
	if d, err := strconv.ParseFloat(f.Duration, 64); err == nil {
		out.add("Duration", formatDuration(d))
	}
	out.add("Overall Bitrate", formatKbps(f.BitRate))

	var video, audio *ffprobeStream
	for i := range rep.Streams {
		s := &rep.Streams[i]
		switch {
		case s.CodecType == "video" && video == nil:
			video = s
		case s.CodecType == "audio" && audio == nil:
			audio = s
		}
	}
	if video != nil {
		out.add("Video Codec", codecLabel(video.CodecName, video.Profile))
		if video.Width > 0 && video.Height > 0 {
			out.add("Resolution", fmt.Sprintf("%dx%d", video.Width, video.Height))
		}
		out.add("Frame Rate", formatFrameRate(orDefault(video.AvgFrameRate, video.RFrameRate)))
		out.add("Video Bitrate", formatKbps(video.BitRate))
	}
	if audio != nil {
		out.add("Audio Codec", codecLabel(audio.CodecName, audio.Profile))
		out.add("Sample Rate", formatKHz(audio.SampleRate))
		out.add("Channels", formatChannels(audio.Channels, audio.ChannelLayout))
		out.add("Audio Bitrate", formatKbps(audio.BitRate))
	}

	tags := make(map[string]string, len(f.Tags))
	for k, v := range f.Tags {
		tags[k] = v
	}
	if video != nil {
		for k, v := range video.Tags {
			if _, ok := tags[k]; !ok {
				tags[k] = v
			}
		}
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out.add(TagLabel(k), tags[k])
	}
	return out
}

func codecLabel(name, profile string) string {
	if name == "" {
		return ""
	}
	if profile != "" && profile != "unknown" {
		return fmt.Sprintf("%s (%s)", name, profile)
	}
	return name
}

// fieldList skips empty values and keeps the first value for a repeated name.
type fieldList []core.MetaField

func (l *fieldList) add(name, value string) {
	value = strings.TrimSpace(value)
	if name == "" || value == "" {
		return
	}
	for _, f := range *l {
		if f.Name == name {
			return
		}
	}
	*l = append(*l, core.MetaField{Name: name, Value: value})
}

// ──────────────────────────────────────────────────────────────────────────────
// ffmpeg
// ──────────────────────────────────────────────────────────────────────────────

// FFmpeg strips metadata by remuxing with stream copy.
type FFmpeg struct {
	Path string
}

func (m FFmpeg) Strip(ctx context.Context, in, out string) error {
	cmd := exec.CommandContext(ctx, orDefault(m.Path, "ffmpeg"),
		"-hide_banner", "-v", "error", "-y",
		"-i", in,
		"-map", "0",
		"-map_metadata", "-1",
		"-map_chapters", "-1",
		"-c", "copy",
		"-fflags", "+bitexact",
		out)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return commandError("ffmpeg", err, stderr.String())
	}
	return nil
}

func commandError(tool string, err error, stderr string) error {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return fmt.Errorf("%s: %w", tool, err)
	}
	if i := strings.LastIndexByte(stderr, '\n'); i >= 0 {
		stderr = stderr[i+1:]
	}
	return fmt.Errorf("%s: %w: %s", tool, err, stderr)
}
