// Package video extracts still frames from source videos so they can be fed
// to structure-from-motion.
package video

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/edaniels/golog"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.viam.com/utils"
)

// ExtractOptions control frame extraction. Zero values fall back to the
// source: FPS 0 keeps the native frame rate, Width/Height 0 keep the native
// resolution, JPEGQuality 0 means 95.
type ExtractOptions struct {
	FPS         float64
	MaxFrames   int
	Width       int
	Height      int
	JPEGQuality int
}

// FrameSet records what an extraction produced; it is persisted as
// metadata.json next to the frames.
type FrameSet struct {
	RunID         string  `json:"run_id"`
	VideoPath     string  `json:"video_path"`
	Lightweight   bool    `json:"lightweight"`
	SourceFPS     float64 `json:"source_fps"`
	FrameInterval int     `json:"frame_interval"`
	NumFrames     int     `json:"num_frames"`
}

// Processor extracts frames from one video into one output directory.
type Processor struct {
	videoPath   string
	outputDir   string
	lightweight bool
	logger      golog.Logger
}

// NewProcessor returns a frame extractor for the given video. Lightweight
// mode caps the JPEG quality to keep datasets small.
func NewProcessor(videoPath, outputDir string, lightweight bool, logger golog.Logger) (*Processor, error) {
	// make sure ffmpeg is in the path before doing anything else
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}
	return &Processor{
		videoPath:   videoPath,
		outputDir:   outputDir,
		lightweight: lightweight,
		logger:      logger,
	}, nil
}

type probeStream struct {
	CodecType    string `json:"codec_type"`
	AvgFrameRate string `json:"avg_frame_rate"`
	NBFrames     string `json:"nb_frames"`
}

type probeResult struct {
	Streams []probeStream `json:"streams"`
}

// probeVideo returns the source frame rate and total frame count (0 when the
// container does not report one).
func probeVideo(videoPath string) (float64, int, error) {
	raw, err := ffmpeg.Probe(videoPath)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "cannot open video %q", videoPath)
	}
	var probed probeResult
	if err := json.Unmarshal([]byte(raw), &probed); err != nil {
		return 0, 0, errors.Wrap(err, "malformed probe output")
	}
	for _, stream := range probed.Streams {
		if stream.CodecType != "video" {
			continue
		}
		fps, err := parseFrameRate(stream.AvgFrameRate)
		if err != nil {
			return 0, 0, err
		}
		total, _ := strconv.Atoi(stream.NBFrames)
		return fps, total, nil
	}
	return 0, 0, errors.Errorf("no video stream in %q", videoPath)
}

// parseFrameRate parses an ffprobe rational like "30000/1001".
func parseFrameRate(rate string) (float64, error) {
	num, den, found := strings.Cut(rate, "/")
	if !found {
		return strconv.ParseFloat(rate, 64)
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, errors.Errorf("invalid frame rate %q", rate)
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0, errors.Errorf("invalid frame rate %q", rate)
	}
	return n / d, nil
}

// jpegQScale maps a 1-100 quality to ffmpeg's 2 (best) to 31 (worst) qscale.
func jpegQScale(quality int) int {
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}
	return 2 + (100-quality)*29/99
}

// ExtractFrames samples frames from the video at the requested rate, writing
// frame_000001.jpg onward plus a metadata.json, and returns the frame set.
func (p *Processor) ExtractFrames(ctx context.Context, opts ExtractOptions) (FrameSet, error) {
	origFPS, totalFrames, err := probeVideo(p.videoPath)
	if err != nil {
		return FrameSet{}, err
	}
	p.logger.Infof("video: %.2f fps, %d frames", origFPS, totalFrames)

	targetFPS := opts.FPS
	if targetFPS <= 0 {
		targetFPS = origFPS
	}
	frameInterval := 1
	if origFPS > targetFPS {
		frameInterval = int(origFPS / targetFPS)
	}
	if opts.MaxFrames > 0 && totalFrames > 0 && totalFrames/opts.MaxFrames > frameInterval {
		frameInterval = totalFrames / opts.MaxFrames
	}

	quality := opts.JPEGQuality
	if quality <= 0 {
		quality = 95
	}
	if p.lightweight && quality > 90 {
		quality = 90
	}

	p.logger.Infof("extracting every %d frame(s)", frameInterval)

	filters := []string{"select=not(mod(n\\," + strconv.Itoa(frameInterval) + "))"}
	if opts.Width > 0 && opts.Height > 0 {
		filters = append(filters, "scale="+strconv.Itoa(opts.Width)+":"+strconv.Itoa(opts.Height))
	}
	outArgs := ffmpeg.KwArgs{
		"vf":    strings.Join(filters, ","),
		"vsync": "vfr",
		"q:v":   jpegQScale(quality),
	}
	if opts.MaxFrames > 0 {
		outArgs["frames:v"] = opts.MaxFrames
	}

	var ffmpegOut bytes.Buffer
	stream := ffmpeg.Input(p.videoPath).
		Output(filepath.Join(p.outputDir, "frame_%06d.jpg"), outArgs).
		OverWriteOutput().
		WithErrorOutput(&ffmpegOut)
	stream.Context = ctx
	if err := stream.Run(); err != nil {
		return FrameSet{}, errors.Wrapf(err, "frame extraction failed: %s", ffmpegOut.String())
	}

	frames, err := filepath.Glob(filepath.Join(p.outputDir, "frame_*.jpg"))
	if err != nil {
		return FrameSet{}, err
	}

	set := FrameSet{
		RunID:         uuid.NewString(),
		VideoPath:     p.videoPath,
		Lightweight:   p.lightweight,
		SourceFPS:     origFPS,
		FrameInterval: frameInterval,
		NumFrames:     len(frames),
	}
	if err := writeMetadata(filepath.Join(p.outputDir, "metadata.json"), set); err != nil {
		return FrameSet{}, err
	}

	p.logger.Infof("extracted %d frames to %s", set.NumFrames, p.outputDir)
	return set, nil
}

func writeMetadata(fn string, set FrameSet) error {
	//nolint:gosec
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(f.Close)

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(set)
}
