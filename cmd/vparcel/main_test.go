package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andreyvit/vparcel"
)

type note struct {
	Title string
	Tags  []string
}

var testRegistry = vparcel.NewRegistry(vparcel.RegistryOptions{})

func init() {
	vparcel.Register(testRegistry, func(w *vparcel.Writer, n *note) {
		w.WriteString(1, n.Title)
		vparcel.WriteList(w, 2, n.Tags)
	}, func(r *vparcel.Reader) *note {
		return &note{
			Title: r.ReadString(1, ""),
			Tags:  vparcel.ReadList[string](r, 2, nil),
		}
	}, vparcel.WithIdentity("test.note"))
}

func runOK(t *testing.T, args ...string) string {
	t.Helper()
	var stdout, stderr bytes.Buffer
	if err := run(args, &stdout, &stderr); err != nil {
		t.Fatalf("run(%q) failed: %v\nstderr: %s", args, err, stderr.String())
	}
	return stdout.String()
}

func TestDump(t *testing.T) {
	dir := t.TempDir()
	data, err := vparcel.Marshal(&note{Title: "hello", Tags: []string{"a"}}, vparcel.Options{Registry: testRegistry})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "note.bin")
	if err := os.WriteFile(path, data, 0666); err != nil {
		t.Fatal(err)
	}

	out := runOK(t, "dump", path)
	if !strings.HasPrefix(out, "test.note (") {
		t.Fatalf("dump output = %q, wanted it to start with the identity", out)
	}
	if !strings.Contains(out, "  #1: (6) 0a68656c6c6f\n") {
		t.Fatalf("dump output = %q, wanted field 1", out)
	}

	out = runOK(t, "--max-bytes", "2", "dump", path)
	if !strings.Contains(out, "  #1: (6) 0a68...\n") {
		t.Fatalf("dump output = %q, wanted truncated field 1", out)
	}
}

func TestDump_Config(t *testing.T) {
	dir := t.TempDir()
	data, err := vparcel.Marshal(&note{Title: "hello"}, vparcel.Options{Registry: testRegistry})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "note.bin")
	if err := os.WriteFile(path, data, 0666); err != nil {
		t.Fatal(err)
	}
	configPath := filepath.Join(dir, "vparcel.toml")
	if err := os.WriteFile(configPath, []byte("[dump]\nmax_bytes = 1\n"), 0666); err != nil {
		t.Fatal(err)
	}

	out := runOK(t, "--config", configPath, "dump", path)
	if !strings.Contains(out, "  #1: (6) 0a...\n") {
		t.Fatalf("dump output = %q, wanted field 1 truncated to 1 byte", out)
	}
	out = runOK(t, "--config", configPath, "--max-bytes", "3", "dump", path)
	if !strings.Contains(out, "  #1: (6) 0a6865...\n") {
		t.Fatalf("dump output = %q, wanted flag to override config", out)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		content string
		wantErr string
	}{
		{"[dump]\nmax_bytes = 0\n", "max_bytes must be positive"},
		{"[dump]\nmax_depth = -1\n", "max_depth must be positive"},
		{"[dump]\ncolor = true\n", "unknown key dump.color"},
		{"[dump\n", "load config"},
	}
	for i, tt := range tests {
		path := filepath.Join(dir, "c.toml")
		if err := os.WriteFile(path, []byte(tt.content), 0666); err != nil {
			t.Fatal(err)
		}
		_, err := loadConfig(path, defaultConfig())
		if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
			t.Errorf("%d: loadConfig = %v, wanted error containing %q", i, err, tt.wantErr)
		}
	}
}

func TestStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "notes.db")
	store, err := vparcel.OpenStore(dbPath, vparcel.StoreOptions{
		Options:     vparcel.Options{Registry: testRegistry},
		Compression: vparcel.CompressionZstd,
		IsTesting:   true,
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"b", "a"} {
		if err := store.Put("notes", key, &note{Title: key}); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	if out := runOK(t, "store", "buckets", dbPath); out != "notes\n" {
		t.Errorf("store buckets = %q, wanted %q", out, "notes\n")
	}
	if out := runOK(t, "store", "keys", dbPath, "notes"); out != "a\nb\n" {
		t.Errorf("store keys = %q, wanted %q", out, "a\nb\n")
	}
	if out := runOK(t, "store", "dump", dbPath, "notes", "a"); !strings.HasPrefix(out, "test.note (") {
		t.Errorf("store dump = %q, wanted a test.note dump", out)
	}

	var stdout, stderr bytes.Buffer
	err = run([]string{"store", "dump", dbPath, "notes", "zzz"}, &stdout, &stderr)
	if !errors.Is(err, vparcel.ErrNotFound) {
		t.Errorf("store dump of missing key = %v, wanted ErrNotFound", err)
	}
}

func TestUsage(t *testing.T) {
	for _, args := range [][]string{
		nil,
		{"frobnicate"},
		{"dump"},
		{"store", "keys", "db"},
		{"--no-such-flag", "dump", "x"},
	} {
		var stdout, stderr bytes.Buffer
		err := run(args, &stdout, &stderr)
		if !errors.Is(err, errUsage) {
			t.Errorf("run(%q) = %v, wanted errUsage", args, err)
		}
	}
}
