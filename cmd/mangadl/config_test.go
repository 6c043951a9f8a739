package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `output: /srv/manga
workers: 6
http_timeout: 45s
engine: goja
cbz: true
log:
  level: debug
  format: json
  output: stderr
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, used, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if used != path {
		t.Errorf("used = %q", used)
	}
	if cfg.Output != "/srv/manga" || cfg.Workers != 6 || cfg.HTTPTimeout != 45*time.Second || cfg.Engine != "goja" || !cfg.CBZ {
		t.Errorf("cfg = %+v", cfg)
	}
	// untouched keys keep defaults
	if cfg.Retries != 3 || cfg.Referer != defaultReferer {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if cfg.Log == nil || cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("log = %+v", cfg.Log)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, _, err := loadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("explicit missing file should fail")
	}
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("workers: [1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := loadConfig(bad); err == nil {
		t.Error("invalid YAML should fail")
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	want := DefaultConfig()
	want.KeyCacheDir = "/tmp/keys"
	if err := saveConfig(want, path); err != nil {
		t.Fatalf("saveConfig: %v", err)
	}
	got, _, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if got.KeyCacheDir != want.KeyCacheDir || got.HTTPTimeout != want.HTTPTimeout {
		t.Errorf("got %+v", got)
	}
}

func TestMergeFlags(t *testing.T) {
	var src Config
	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().IntVar(&src.Workers, "workers", 4, "")
	cmd.Flags().StringVar(&src.Engine, "engine", "otto", "")
	cmd.Flags().StringVar(&src.Output, "output", ".", "")
	if err := cmd.Flags().Parse([]string{"--workers", "2", "--engine=goja"}); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cfg.Output = "/from/file"
	mergeFlags(cfg, &src, cmd)
	if cfg.Workers != 2 || cfg.Engine != "goja" {
		t.Errorf("flags not applied: %+v", cfg)
	}
	if cfg.Output != "/from/file" {
		t.Errorf("unset flag overrode file value: %q", cfg.Output)
	}
}

func TestParseRate(t *testing.T) {
	tests := map[string]int64{
		"":          0,
		"100":       100,
		"2MiB/s":    2 * 1024 * 1024,
		"500KiB/s":  500 * 1024,
		"1.5 MB":    1500000,
		"-1":        0,
		"fast":      0,
		"3gib/s":    3 * 1024 * 1024 * 1024,
		" 10 kb/s ": 10000,
	}
	for in, want := range tests {
		if got := parseRate(in); got != want {
			t.Errorf("parseRate(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestChapterDirName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"https://www.mangago.me/read-manga/some_title/mf/v01/c001/", "some_title_mf_v01_c001"},
		{"https://m.mangago.me/read-manga/some_title/mf/v01/c001/pg-3/", "some_title_mf_v01_c001"},
		{"https://www.mangago.me/read-manga/t/uu/br/1234567/2/", "t_uu_br_1234567"},
		{"https://www.mangago.me/read-manga/t/uu/br/1234567/", "t_uu_br_1234567"},
		{"https://www.mangago.me/", "www.mangago.me"},
	}
	for _, tt := range tests {
		if got := chapterDirName(tt.in); got != tt.want {
			t.Errorf("chapterDirName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
