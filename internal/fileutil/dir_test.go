package fileutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestEnsureDir(t *testing.T) {
	t.Parallel()
	t.Run("creates nested directories", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(t.TempDir(), "a", "b", "c")

		if err := EnsureDir(dir); err != nil {
			t.Fatalf("EnsureDir() error: %v", err)
		}

		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("stat after EnsureDir: %v", err)
		}
		if !info.IsDir() {
			t.Error("expected directory, got file")
		}
		if runtime.GOOS != "windows" {
			if perm := info.Mode().Perm(); perm&0o077 != 0 {
				t.Errorf("mode = %o, want no group/other bits", perm)
			}
		}
	})

	t.Run("idempotent on existing directory", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()

		if err := EnsureDir(dir); err != nil {
			t.Fatalf("EnsureDir() on existing dir error: %v", err)
		}
	})

	t.Run("fails when a file is in the way", func(t *testing.T) {
		t.Parallel()
		file := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(file, nil, 0o600); err != nil {
			t.Fatal(err)
		}

		if err := EnsureDir(filepath.Join(file, "sub")); err == nil {
			t.Fatal("EnsureDir() under a regular file succeeded, want error")
		}
	})
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	tests := map[string]struct {
		in   string
		want string
	}{
		"tilde only":      {in: "~", want: home},
		"tilde slash":     {in: "~/.config/maude/config.toml", want: filepath.Join(home, ".config", "maude", "config.toml")},
		"absolute":        {in: "/etc/maude.toml", want: "/etc/maude.toml"},
		"relative":        {in: "conf/maude.toml", want: "conf/maude.toml"},
		"tilde user form": {in: "~other/x", want: "~other/x"},
		"empty":           {in: "", want: ""},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ExpandHome(tc.in)
			if err != nil {
				t.Fatalf("ExpandHome(%q) error: %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("ExpandHome(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestAppDirs(t *testing.T) {
	t.Parallel()

	for name, fn := range map[string]func(string) (string, error){
		"config": ConfigDir,
		"data":   DataDir,
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			dir, err := fn("maude")
			if err != nil {
				t.Skipf("%s dir unavailable: %v", name, err)
			}
			if filepath.Base(dir) != "maude" {
				t.Errorf("dir = %q, want it to end in maude", dir)
			}
		})
	}
}
