package transcription

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/google/uuid"
)

// DefaultSampleRate is the rate model backends expect.
const DefaultSampleRate = 16000

var supportedFormats = []string{".mp3", ".wav", ".m4a", ".ogg", ".flac", ".webm", ".aac", ".wma"}

// NormalizeAudio converts any audio file to a mono 16-bit WAV at the given
// sample rate. The result is written to a fresh directory under tempDir and
// keeps the source file name, e.g. talk.mp3 -> <tempDir>/<uuid>/talk.mp3.wav,
// so backends that key outputs by file name still see the original name.
func NormalizeAudio(ctx context.Context, inputPath, tempDir string, sampleRate int) (string, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	dir := filepath.Join(tempDir, uuid.New().String())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	outputPath := filepath.Join(dir, filepath.Base(inputPath)+".wav")

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", inputPath,
		"-ar", strconv.Itoa(sampleRate),
		"-ac", "1",
		"-c:a", "pcm_s16le",
		"-y",
		outputPath,
	)
	cmd.Env = os.Environ()
	output, err := cmd.CombinedOutput()
	if err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("%w: ffmpeg failed: %v: %s", ErrExternal, err, tail(output))
	}
	return outputPath, nil
}

// ValidateAudioFormat checks if the file extension is supported
func ValidateAudioFormat(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, format := range supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}

// WavInfo describes a decoded WAV header.
type WavInfo struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Duration   time.Duration
}

// InspectWav reads the header of a WAV file.
func InspectWav(path string) (WavInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return WavInfo{}, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return WavInfo{}, fmt.Errorf("%s is not a valid WAV file", path)
	}
	dur, err := d.Duration()
	if err != nil {
		return WavInfo{}, fmt.Errorf("reading duration of %s: %w", path, err)
	}
	return WavInfo{
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
		BitDepth:   int(d.BitDepth),
		Duration:   dur,
	}, nil
}

// Duration returns the length of a WAV recording in seconds.
func Duration(path string) (float64, error) {
	info, err := InspectWav(path)
	if err != nil {
		return 0, err
	}
	return info.Duration.Seconds(), nil
}

// CheckFormat verifies a normalised file is mono 16-bit PCM at sampleRate.
func CheckFormat(path string, sampleRate int) error {
	info, err := InspectWav(path)
	if err != nil {
		return err
	}
	if info.SampleRate != sampleRate || info.Channels != 1 || info.BitDepth != 16 {
		return fmt.Errorf("%s is %d Hz, %d channel(s), %d bit; want %d Hz mono 16 bit",
			path, info.SampleRate, info.Channels, info.BitDepth, sampleRate)
	}
	return nil
}
