package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPageURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{":8080", "http://localhost:8080/"},
		{"127.0.0.1:9000", "http://127.0.0.1:9000/"},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			if got := pageURL(tt.addr); got != tt.want {
				t.Errorf("pageURL(%q) = %q, want %q", tt.addr, got, tt.want)
			}
		})
	}
}

func TestFindWebDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)

	if got := findWebDir(); got != "" {
		t.Errorf("findWebDir() = %q, want empty", got)
	}

	if err := os.Mkdir(filepath.Join(dir, "web"), 0755); err != nil {
		t.Fatal(err)
	}
	got := findWebDir()
	if filepath.Base(got) != "web" || !filepath.IsAbs(got) {
		t.Errorf("findWebDir() = %q, want absolute path to web", got)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	if err := run([]string{"-input-size", "100"}); err == nil {
		t.Error("expected validation error")
	}
}
