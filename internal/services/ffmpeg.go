package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// FFmpegService
// Wraps the ffmpeg/ffprobe binaries for the slideshow pipeline: audio
// tempo adjustment, duration probing, and the concat-demuxer render that
// turns a directory of stills plus a narration track into the final video.
// ---------------------------------------------------------------------------

type FFmpegService struct {
	width  int
	height int
	fps    int
}

func NewFFmpegService(width, height, fps int) *FFmpegService {
	return &FFmpegService{
		width:  width,
		height: height,
		fps:    fps,
	}
}

// AudioDuration returns the duration of an audio file in seconds.
func (s *FFmpegService) AudioDuration(ctx context.Context, audioPath string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		audioPath,
	}

	cmd := exec.CommandContext(ctx, "ffprobe", args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	var durationSec float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(output)), "%f", &durationSec); err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}

	return durationSec, nil
}

// SpeedUp re-encodes an audio file at the given tempo factor. The atempo
// filter accepts factors between 0.5 and 2.0 per instance; config validation
// keeps the configured factor inside that range.
func (s *FFmpegService) SpeedUp(ctx context.Context, inputPath, outputPath string, factor float64) error {
	log.Printf("[FFmpeg] Speeding up audio by %gx", factor)

	args := []string{
		"-i", inputPath,
		"-filter:a", fmt.Sprintf("atempo=%g", factor),
		"-vn",
		"-y",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg audio speedup failed: %w", err)
	}

	return nil
}

// RenderSlideshow builds the final video from the .jpg files in imageDir and
// the narration audio. Each image is shown for an equal share of the audio
// duration via a concat-demuxer list written to listPath. An empty image
// directory is an error, not a silent empty video.
func (s *FFmpegService) RenderSlideshow(ctx context.Context, imageDir, audioPath, listPath, outputPath string) error {
	images, err := ListImages(imageDir)
	if err != nil {
		return err
	}
	if len(images) == 0 {
		return fmt.Errorf("no images found in %s, cannot render slideshow", imageDir)
	}

	duration, err := s.AudioDuration(ctx, audioPath)
	if err != nil {
		return err
	}

	manifest, err := BuildConcatManifest(images, duration)
	if err != nil {
		return err
	}
	if err := os.WriteFile(listPath, []byte(manifest), 0644); err != nil {
		return fmt.Errorf("failed to write concat list: %w", err)
	}

	log.Printf("[FFmpeg] Rendering slideshow: %d images over %.2fs of audio", len(images), duration)

	vf := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,format=yuv420p",
		s.width, s.height, s.width, s.height,
	)

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-i", audioPath,
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-tune", "stillimage",
		"-vf", vf,
		"-r", strconv.Itoa(s.fps),
		"-c:a", "aac",
		"-shortest", // End when the shorter stream (audio) ends
		outputPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg slideshow render failed: %w", err)
	}

	log.Printf("[FFmpeg] Slideshow rendered to %s", outputPath)
	return nil
}

// BuildConcatManifest produces the concat-demuxer list for a slideshow.
// Every image receives an equal share of the total audio duration. The final
// image is repeated at the end without a duration line because the demuxer
// ignores the duration of the last entry otherwise.
func BuildConcatManifest(imagePaths []string, totalDuration float64) (string, error) {
	if len(imagePaths) == 0 {
		return "", fmt.Errorf("no images for concat manifest")
	}
	if totalDuration <= 0 {
		return "", fmt.Errorf("audio duration must be positive, got %.3f", totalDuration)
	}

	perImage := totalDuration / float64(len(imagePaths))

	var b strings.Builder
	for _, path := range imagePaths {
		fmt.Fprintf(&b, "file '%s'\n", escapeConcatPath(path))
		fmt.Fprintf(&b, "duration %.6f\n", perImage)
	}
	fmt.Fprintf(&b, "file '%s'\n", escapeConcatPath(imagePaths[len(imagePaths)-1]))

	return b.String(), nil
}

// escapeConcatPath escapes single quotes for the concat list format.
func escapeConcatPath(path string) string {
	return strings.ReplaceAll(path, "'", `'\''`)
}

// ListImages returns the .jpg files in dir as sorted full paths. The
// collector writes zero-padded sequential names, so lexical order is
// download order.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read image directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".jpg") {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Cleanup removes intermediate files and directories. Missing paths are
// ignored so the error path can clean up half-finished runs.
func (s *FFmpegService) Cleanup(paths ...string) {
	for _, path := range paths {
		os.RemoveAll(path)
	}
}
