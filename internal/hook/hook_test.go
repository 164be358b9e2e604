package hook

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/moodflix/internal/emotion"
	"github.com/ayusman/moodflix/internal/theme"
)

// writeHook creates dir/name with a manifest and an executable shell script.
func writeHook(t *testing.T, dir, name string, moods []string, script string) *Hook {
	t.Helper()

	hookDir := filepath.Join(dir, name)
	if err := os.MkdirAll(hookDir, 0755); err != nil {
		t.Fatalf("failed to create hook dir: %v", err)
	}

	manifest := Manifest{
		Name:       name,
		Version:    "1.0.0",
		Executable: "run.sh",
		Moods:      moods,
		Config:     json.RawMessage(`{"device":"desk-lamp"}`),
	}
	data, err := json.Marshal(manifest)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(hookDir, ManifestFile), data, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(hookDir, "run.sh"), []byte(script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	return &Hook{Manifest: manifest, Path: hookDir, Executable: filepath.Join(hookDir, "run.sh")}
}

const okScript = "#!/bin/sh\necho '{\"success\":true}'\n"

func TestManager_Discover(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, "lamp", []string{"happy", "sad"}, okScript)
	writeHook(t, dir, "logger", []string{AnyMood}, okScript)

	// Directories without a manifest and stray files are ignored.
	os.MkdirAll(filepath.Join(dir, "empty"), 0755)
	os.WriteFile(filepath.Join(dir, "README"), []byte("hooks"), 0644)

	m := NewManager(dir)
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	hooks := m.List()
	if len(hooks) != 2 {
		t.Fatalf("expected 2 hooks, got %d", len(hooks))
	}
	if hooks[0].Manifest.Name != "lamp" || hooks[1].Manifest.Name != "logger" {
		t.Errorf("hooks not sorted by name: %s, %s", hooks[0].Manifest.Name, hooks[1].Manifest.Name)
	}

	h, err := m.Get("lamp")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if h.Executable != filepath.Join(dir, "lamp", "run.sh") {
		t.Errorf("unexpected executable path %s", h.Executable)
	}

	if _, err := m.Get("missing"); !errors.Is(err, ErrHookNotFound) {
		t.Errorf("Get(missing) = %v, want ErrHookNotFound", err)
	}
}

func TestManager_Discover_InvalidManifest(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, "good", []string{"happy"}, okScript)

	bad := filepath.Join(dir, "bad")
	os.MkdirAll(bad, 0755)
	os.WriteFile(filepath.Join(bad, ManifestFile), []byte("{not json"), 0644)

	nameless := filepath.Join(dir, "nameless")
	os.MkdirAll(nameless, 0755)
	os.WriteFile(filepath.Join(nameless, ManifestFile), []byte(`{"executable":"run.sh"}`), 0644)

	m := NewManager(dir)
	err := m.Discover()
	if err == nil {
		t.Fatal("expected error describing invalid manifests")
	}
	if !strings.Contains(err.Error(), "bad") || !strings.Contains(err.Error(), "nameless") {
		t.Errorf("error should name both broken hooks: %v", err)
	}
	if len(m.List()) != 1 {
		t.Errorf("valid hooks should still load, got %d", len(m.List()))
	}
}

func TestManager_Discover_MissingDir(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "nope"))
	if err := m.Discover(); err != nil {
		t.Errorf("Discover() on missing dir = %v, want nil", err)
	}
	if len(m.List()) != 0 {
		t.Error("expected no hooks")
	}
}

func TestManager_Match(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, "lamp", []string{"happy", "sad"}, okScript)
	writeHook(t, dir, "logger", []string{AnyMood}, okScript)
	writeHook(t, dir, "alarm", []string{"fearful"}, okScript)

	m := NewManager(dir)
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	tests := []struct {
		label emotion.Label
		want  []string
	}{
		{emotion.Happy, []string{"lamp", "logger"}},
		{emotion.Fearful, []string{"alarm", "logger"}},
		{emotion.Neutral, []string{"logger"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.label), func(t *testing.T) {
			got := m.Match(tt.label)
			if len(got) != len(tt.want) {
				t.Fatalf("Match(%s) returned %d hooks, want %d", tt.label, len(got), len(tt.want))
			}
			for i, h := range got {
				if h.Manifest.Name != tt.want[i] {
					t.Errorf("hook %d = %s, want %s", i, h.Manifest.Name, tt.want[i])
				}
			}
		})
	}
}

func TestExecutor_Execute(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	// Echo the request back so the payload can be checked.
	script := "#!/bin/sh\nINPUT=$(cat)\necho \"{\\\"success\\\":true,\\\"data\\\":$INPUT}\"\n"
	h := writeHook(t, t.TempDir(), "echo", []string{AnyMood}, script)

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), h, &Request{
		Mood:     emotion.Happy,
		Previous: emotion.Neutral,
		Theme:    theme.Resolve(emotion.Happy),
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !resp.Success {
		t.Error("expected success=true")
	}

	var got struct {
		Mood     string          `json:"mood"`
		Previous string          `json:"previous"`
		Theme    theme.Theme     `json:"theme"`
		Config   json.RawMessage `json:"config"`
	}
	if err := json.Unmarshal(resp.Data, &got); err != nil {
		t.Fatalf("failed to decode echoed request: %v", err)
	}
	if got.Mood != "happy" || got.Previous != "neutral" {
		t.Errorf("unexpected mood fields: %+v", got)
	}
	if got.Theme.Color != "text-[#FFFF00]" {
		t.Errorf("unexpected theme color %q", got.Theme.Color)
	}
	if string(got.Config) != `{"device":"desk-lamp"}` {
		t.Errorf("manifest config not forwarded: %s", got.Config)
	}
}

func TestExecutor_Failures(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	tests := []struct {
		name    string
		script  string
		timeout time.Duration
		check   func(t *testing.T, resp *Response, err error)
	}{
		{
			name:    "error response",
			script:  "#!/bin/sh\necho '{\"success\":false,\"error\":\"lamp offline\"}'\n",
			timeout: 5 * time.Second,
			check: func(t *testing.T, resp *Response, err error) {
				if err != nil {
					t.Fatalf("Execute() error = %v", err)
				}
				if resp.Success || resp.Error != "lamp offline" {
					t.Errorf("unexpected response %+v", resp)
				}
			},
		},
		{
			name:    "invalid json",
			script:  "#!/bin/sh\necho 'not valid json'\n",
			timeout: 5 * time.Second,
			check: func(t *testing.T, resp *Response, err error) {
				if err == nil {
					t.Fatal("expected parse error")
				}
			},
		},
		{
			name:    "non-zero exit",
			script:  "#!/bin/sh\necho 'boom' >&2\nexit 1\n",
			timeout: 5 * time.Second,
			check: func(t *testing.T, resp *Response, err error) {
				if err == nil || !strings.Contains(err.Error(), "boom") {
					t.Fatalf("expected error with stderr, got %v", err)
				}
			},
		},
		{
			name:    "timeout",
			script:  "#!/bin/sh\nsleep 10\necho '{\"success\":true}'\n",
			timeout: 100 * time.Millisecond,
			check: func(t *testing.T, resp *Response, err error) {
				if !errors.Is(err, ErrTimeout) {
					t.Fatalf("expected ErrTimeout, got %v", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := writeHook(t, t.TempDir(), "h", []string{AnyMood}, tt.script)
			resp, err := NewExecutor(tt.timeout).Execute(context.Background(), h, &Request{Mood: emotion.Sad})
			tt.check(t, resp, err)
		})
	}
}
