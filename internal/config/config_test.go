package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"tangled.org/tokentrim.app/tokentrim/bundle"
	"tangled.org/tokentrim.app/tokentrim/internal/config"
)

const yamlConfig = `
max_payload_bytes: 1048576
max_decoded_bytes: 8388608
compression: zstd
digest: sha256
workers: 2
wrap_width: 64
`

const jsoncConfig = `{
  // one mebibyte
  "max_payload_bytes": 1048576,
  "max_decoded_bytes": 8388608,
  "compression": "ZSTD",
  "digest": "sha256",
  /* bounded fan-out */
  "workers": 2,
  "wrap_width": 64,
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoad(t *testing.T) {
	want := &bundle.Config{
		MaxPayloadBytes: 1 << 20,
		MaxDecodedBytes: 8 << 20,
		Compression:     bundle.CompressionZstd,
		Digest:          bundle.DigestSHA256,
		Workers:         2,
		WrapWidth:       64,
	}

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"YAML", "tokentrim.yaml", yamlConfig},
		{"YML", "tokentrim.yml", yamlConfig},
		{"JSONC", "tokentrim.jsonc", jsoncConfig},
		{"JSONWithComments", "tokentrim.json", jsoncConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.Load(writeFile(t, tt.file, tt.content))
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if *cfg != *want {
				t.Errorf("got %+v, want %+v", *cfg, *want)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Run("EmptyPath", func(t *testing.T) {
		cfg, err := config.Load("")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if *cfg != *bundle.DefaultConfig() {
			t.Errorf("got %+v, want defaults", *cfg)
		}
	})

	t.Run("PartialFile", func(t *testing.T) {
		cfg, err := config.Load(writeFile(t, "partial.yaml", "compression: lz4\n"))
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		def := bundle.DefaultConfig()
		if cfg.Compression != bundle.CompressionLZ4 {
			t.Errorf("compression %q, want lz4", cfg.Compression)
		}
		if cfg.Digest != def.Digest || cfg.MaxPayloadBytes != def.MaxPayloadBytes || cfg.WrapWidth != def.WrapWidth {
			t.Errorf("unset fields must keep defaults, got %+v", *cfg)
		}
	})

	t.Run("ZeroDisablesCeiling", func(t *testing.T) {
		cfg, err := config.Load(writeFile(t, "nolimit.yaml", "max_payload_bytes: 0\n"))
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.MaxPayloadBytes != 0 {
			t.Errorf("max payload %d, want 0", cfg.MaxPayloadBytes)
		}
	})
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"UnknownCompression", "bad.yaml", "compression: brotli\n"},
		{"UnknownDigest", "bad.json", `{"digest": "md5"}`},
		{"NegativeCeiling", "bad.yaml", "max_payload_bytes: -1\n"},
		{"InvalidYAML", "bad.yaml", "compression: [unterminated\n"},
		{"UnsupportedExtension", "bad.toml", "compression = \"zstd\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := config.Load(writeFile(t, tt.file, tt.content)); err == nil {
				t.Error("expected error")
			}
		})
	}

	t.Run("MissingFile", func(t *testing.T) {
		if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}

func TestPath(t *testing.T) {
	t.Setenv(config.EnvVar, "/from/env.yaml")

	if got := config.Path("/from/flag.yaml"); got != "/from/flag.yaml" {
		t.Errorf("flag must win, got %q", got)
	}
	if got := config.Path(""); got != "/from/env.yaml" {
		t.Errorf("env fallback, got %q", got)
	}
}
