package services

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestBuildConcatManifest(t *testing.T) {
	images := []string{
		"video_images/img_000.jpg",
		"video_images/img_001.jpg",
		"video_images/img_002.jpg",
		"video_images/img_003.jpg",
	}

	manifest, err := BuildConcatManifest(images, 60.0)
	if err != nil {
		t.Fatalf("BuildConcatManifest failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(manifest, "\n"), "\n")
	// One file+duration pair per image, plus the trailing repeat of the last image.
	if want := len(images)*2 + 1; len(lines) != want {
		t.Fatalf("expected %d lines, got %d:\n%s", want, len(lines), manifest)
	}

	var total float64
	var durations int
	for _, line := range lines {
		if !strings.HasPrefix(line, "duration ") {
			continue
		}
		durations++
		val, err := strconv.ParseFloat(strings.TrimPrefix(line, "duration "), 64)
		if err != nil {
			t.Fatalf("unparseable duration line %q: %v", line, err)
		}
		total += val
	}
	if durations != len(images) {
		t.Errorf("expected %d duration lines, got %d", len(images), durations)
	}
	if math.Abs(total-60.0) > 0.001 {
		t.Errorf("durations should cover the audio: got %.6f, want 60.0", total)
	}

	if lines[0] != "file 'video_images/img_000.jpg'" {
		t.Errorf("unexpected first line: %q", lines[0])
	}
	if last := lines[len(lines)-1]; last != "file 'video_images/img_003.jpg'" {
		t.Errorf("final line should repeat the last image without a duration, got %q", last)
	}
}

func TestBuildConcatManifestSingleImage(t *testing.T) {
	manifest, err := BuildConcatManifest([]string{"only.jpg"}, 12.5)
	if err != nil {
		t.Fatalf("BuildConcatManifest failed: %v", err)
	}
	if got := strings.Count(manifest, "file 'only.jpg'"); got != 2 {
		t.Errorf("single image should appear twice (entry + trailing repeat), got %d", got)
	}
	if !strings.Contains(manifest, "duration 12.500000") {
		t.Errorf("expected the full audio duration on the single image:\n%s", manifest)
	}
}

func TestBuildConcatManifestZeroImages(t *testing.T) {
	if _, err := BuildConcatManifest(nil, 30.0); err == nil {
		t.Error("expected error for zero images")
	}
}

func TestBuildConcatManifestBadDuration(t *testing.T) {
	for _, dur := range []float64{0, -1.5} {
		if _, err := BuildConcatManifest([]string{"a.jpg"}, dur); err == nil {
			t.Errorf("expected error for duration %v", dur)
		}
	}
}

func TestBuildConcatManifestEscapesQuotes(t *testing.T) {
	manifest, err := BuildConcatManifest([]string{"it's.jpg"}, 5.0)
	if err != nil {
		t.Fatalf("BuildConcatManifest failed: %v", err)
	}
	if !strings.Contains(manifest, `file 'it'\''s.jpg'`) {
		t.Errorf("single quote not escaped for the concat demuxer:\n%s", manifest)
	}
}

func TestListImages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"img_002.jpg", "img_000.jpg", "img_010.jpg", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.jpg"), 0755); err != nil {
		t.Fatal(err)
	}

	paths, err := ListImages(dir)
	if err != nil {
		t.Fatalf("ListImages failed: %v", err)
	}

	want := []string{"img_000.jpg", "img_002.jpg", "img_010.jpg"}
	if len(paths) != len(want) {
		t.Fatalf("expected %d images, got %d: %v", len(want), len(paths), paths)
	}
	for i, name := range want {
		if got := filepath.Base(paths[i]); got != name {
			t.Errorf("position %d: expected %s, got %s", i, name, got)
		}
	}
}

func TestListImagesMissingDir(t *testing.T) {
	if _, err := ListImages(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestCleanupRemovesFilesAndDirs(t *testing.T) {
	dir := t.TempDir()
	imageDir := filepath.Join(dir, "video_images")
	if err := os.MkdirAll(imageDir, 0755); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		path := filepath.Join(imageDir, fmt.Sprintf("img_%03d.jpg", i))
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	audio := filepath.Join(dir, "voice.mp3")
	if err := os.WriteFile(audio, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	svc := NewFFmpegService(1920, 1080, 24)
	svc.Cleanup(imageDir, audio, filepath.Join(dir, "never_existed.txt"))

	if _, err := os.Stat(imageDir); !os.IsNotExist(err) {
		t.Error("image directory should be removed")
	}
	if _, err := os.Stat(audio); !os.IsNotExist(err) {
		t.Error("audio file should be removed")
	}
}
