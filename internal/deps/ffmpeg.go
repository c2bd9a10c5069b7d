package deps

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// ResolveFFmpeg returns the absolute path of the ffmpeg executable named by
// command (a bare name is looked up on PATH). The returned error describes
// why the binary cannot be run.
func ResolveFFmpeg(command string) (string, error) {
	name := strings.TrimSpace(command)
	if name == "" {
		name = "ffmpeg"
	}
	resolved, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("binary %q not found", name)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("stat %q: %w", resolved, err)
	}
	if !isExecutable(info) {
		return "", fmt.Errorf("binary %q is not executable", resolved)
	}
	return resolved, nil
}

// CheckFFmpeg reports whether the transcoder can run.
func CheckFFmpeg(command string) Status {
	result := Status{
		Name:        "FFmpeg",
		Description: "Transcodes synthesized WAV audio to MP3",
	}
	resolved, err := ResolveFFmpeg(command)
	if err != nil {
		result.Command = strings.TrimSpace(command)
		if result.Command == "" {
			result.Command = "ffmpeg"
		}
		result.Detail = err.Error()
		return result
	}
	result.Command = resolved
	result.Available = true
	return result
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
