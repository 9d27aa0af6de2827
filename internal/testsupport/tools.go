package testsupport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"scenecast/internal/services"
	"scenecast/internal/services/process"
)

// FakeTools is a process.Executor that imitates manim, gtts-cli, ffmpeg and
// ffprobe by writing the files they would produce. Durations reported by
// ffprobe are chosen by file name prefix.
type FakeTools struct {
	mu sync.Mutex

	// VideoSeconds and AudioSeconds are reported for output_animation* and
	// voiceover* files respectively.
	VideoSeconds float64
	AudioSeconds float64
	// RenderFailures makes the first N manim calls exit non-zero with RenderError.
	RenderFailures int
	RenderError    string
	// FailBinary makes every call to the named binary fail.
	FailBinary string

	Calls []process.Command
}

// NewFakeTools returns fakes reporting the given durations.
func NewFakeTools(videoSeconds, audioSeconds float64) *FakeTools {
	return &FakeTools{VideoSeconds: videoSeconds, AudioSeconds: audioSeconds, RenderError: "SyntaxError: invalid syntax"}
}

// Count returns how many times binary ran.
func (f *FakeTools) Count(binary string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, call := range f.Calls {
		if filepath.Base(call.Binary) == binary {
			count++
		}
	}
	return count
}

// Run implements process.Executor.
func (f *FakeTools) Run(ctx context.Context, cmd process.Command, _ func(string)) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &services.CommandError{Binary: cmd.Binary, Args: cmd.Args, Err: err}
	}
	f.mu.Lock()
	f.Calls = append(f.Calls, cmd)
	name := filepath.Base(cmd.Binary)
	renderCall := 0
	if name == "manim" {
		for _, call := range f.Calls {
			if filepath.Base(call.Binary) == "manim" {
				renderCall++
			}
		}
	}
	f.mu.Unlock()

	if name == f.FailBinary {
		return "fatal", &services.CommandError{Binary: cmd.Binary, Args: cmd.Args, Output: "fatal", Err: errors.New("exit status 1")}
	}
	switch name {
	case "manim":
		if renderCall <= f.RenderFailures {
			return f.RenderError, &services.CommandError{Binary: cmd.Binary, Args: cmd.Args, Output: f.RenderError, Err: errors.New("exit status 1")}
		}
		return "File ready", f.render(cmd)
	case "gtts-cli":
		return "", touch(argAfter(cmd.Args, "--output"))
	case "ffmpeg":
		return "", touch(cmd.Args[len(cmd.Args)-1])
	case "ffprobe":
		return f.probe(cmd.Args)
	}
	return "", fmt.Errorf("fake tools: unexpected binary %q", cmd.Binary)
}

func (f *FakeTools) render(cmd process.Command) error {
	script := ""
	for _, arg := range cmd.Args {
		if strings.HasSuffix(arg, ".py") {
			script = strings.TrimSuffix(arg, ".py")
		}
	}
	preset := "1080p60"
	for _, arg := range cmd.Args {
		if arg == "-ql" {
			preset = "480p15"
		}
	}
	mediaDir := argAfter(cmd.Args, "--media_dir")
	if mediaDir == "" {
		mediaDir = filepath.Join(cmd.Dir, "media")
	}
	stem := argAfter(cmd.Args, "-o")
	return touch(filepath.Join(mediaDir, "videos", script, preset, stem+".mp4"))
}

func (f *FakeTools) probe(args []string) (string, error) {
	path := args[len(args)-1]
	if _, err := os.Stat(path); err != nil {
		return "", &services.CommandError{Binary: "ffprobe", Args: args, Output: path + ": No such file or directory", Err: errors.New("exit status 1")}
	}
	if argAfter(args, "-show_entries") == "format=duration" {
		base := filepath.Base(path)
		switch {
		case strings.HasPrefix(base, "voiceover"):
			return fmt.Sprintf("%f\n", f.AudioSeconds), nil
		case strings.HasPrefix(base, "output_animation"):
			return fmt.Sprintf("%f\n", f.VideoSeconds), nil
		default:
			return fmt.Sprintf("%f\n", f.AudioSeconds), nil
		}
	}
	return `{"streams":[{"index":0,"codec_type":"video"},{"index":1,"codec_type":"audio"}],"format":{"duration":"1.0"}}`, nil
}

func argAfter(args []string, flag string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func touch(path string) error {
	if path == "" {
		return errors.New("fake tools: missing output path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte("fake media"), 0o644)
}
