package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/your-org/voicecheck/pkg/audio"
)

func writeWAV(t *testing.T, d time.Duration) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	data := audio.EncodePCM16(audio.Tone(220, d, 16000, 0.3), 16000)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestTimelineCommand(t *testing.T) {
	t.Setenv("APP_LOG_LEVEL", "error")
	path := writeWAV(t, time.Second)
	pngPath := filepath.Join(t.TempDir(), "risk.png")

	out, err := execute(t, "", "timeline", path, "--png", pngPath)
	if err != nil {
		t.Fatalf("timeline: %v\n%s", err, out)
	}
	if !strings.Contains(out, "hop=533") {
		t.Errorf("expected hop in output, got %q", out)
	}
	if info, err := os.Stat(pngPath); err != nil || info.Size() == 0 {
		t.Errorf("expected png written, got %v", err)
	}
	pngFlag = ""
}

func TestAnalyzeCommand_Demo(t *testing.T) {
	t.Setenv("APP_LOG_LEVEL", "error")
	path := writeWAV(t, 3*time.Second)

	out, err := execute(t, "", "analyze", path, "--demo")
	if err != nil {
		t.Fatalf("analyze: %v\n%s", err, out)
	}
	for _, want := range []string{`"status": "done"`, `"verdict": "inconclusive"`, `"confidence": null`, "local risk"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestAnalyzeCommand_RejectsLongClip(t *testing.T) {
	t.Setenv("APP_LOG_LEVEL", "error")
	path := writeWAV(t, 16*time.Second)

	if _, err := execute(t, "", "analyze", path, "--demo"); err == nil || !strings.Contains(err.Error(), "clip too long") {
		t.Fatalf("expected duration validation error, got %v", err)
	}
}

func TestWatchCommand_Demo(t *testing.T) {
	t.Setenv("APP_LOG_LEVEL", "error")
	path := writeWAV(t, time.Second)

	out, err := execute(t, path+"\n\n", "watch", "--demo")
	if err != nil {
		t.Fatalf("watch: %v\n%s", err, out)
	}
	if !strings.Contains(out, `"requestId": "demo-local"`) {
		t.Errorf("expected demo result, got %q", out)
	}
}
