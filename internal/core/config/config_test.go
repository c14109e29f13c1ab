package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/davmount/internal/core/logger"
	"github.com/davmount/internal/core/webdav"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseConfigFormats(t *testing.T) {
	want := &Config{
		Mountpoint:  "/mnt/dav",
		URL:         "http://dav.example/files/",
		Username:    "alice",
		Password:    "secret",
		UserAgent:   "davmount/1",
		ThrowErrors: true,
		Timeout:     10 * time.Second,
		LockTimeout: time.Hour,
		LockOwner:   "alice@example",
		Verbose:     true,
		StdLog:      "stdout",
		ErrLog:      "stderr",
	}

	tests := []struct {
		name string
		file string
		body string
	}{
		{
			name: "toml",
			file: "cfg.toml",
			body: `mpoint = "/mnt/dav"
url = "http://dav.example/files/"
username = "alice"
password = "secret"
user-agent = "davmount/1"
throw-errors = true
timeout = "10s"
lock-timeout = "1h"
lock-owner = "alice@example"
verbose = true
std = "stdout"
err = "stderr"
`,
		},
		{
			name: "yaml",
			file: "cfg.yml",
			body: `mpoint: /mnt/dav
url: http://dav.example/files/
username: alice
password: secret
user-agent: davmount/1
throw-errors: true
timeout: 10s
lock-timeout: 1h
lock-owner: alice@example
verbose: true
std: stdout
err: stderr
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseConfig(writeFile(t, tt.file, tt.body))
			if err != nil {
				t.Fatalf("ParseConfig: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseConfigErrors(t *testing.T) {
	if _, err := ParseConfig(writeFile(t, "cfg.ini", "x=1")); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("ini: %v", err)
	}
	if _, err := ParseConfig(writeFile(t, "cfg.toml", `timeout = "soon"`)); err == nil {
		t.Fatalf("expected duration error")
	}
	cfg, err := ParseConfig(writeFile(t, "empty.yaml", ""))
	if err != nil || cfg.URL != "" {
		t.Fatalf("empty yaml = %+v, %v", cfg, err)
	}
}

func TestParseFlagsOverrideFile(t *testing.T) {
	path := writeFile(t, "cfg.toml", `url = "http://file.example/"
username = "file"
verbose = true
lock-owner = "from-file"
`)

	cfg, args, err := Parse("davmount", []string{
		"-c", path,
		"-u", "bob:pw:with:colons",
		"--verbose=false",
		"--lock-timeout", "30s",
		"-o", "ro,allow_other",
		"/mnt/x", "http://cli.example/",
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(args) != 2 {
		t.Fatalf("args = %v", args)
	}
	if cfg.Username != "bob" || cfg.Password != "pw:with:colons" {
		t.Errorf("credentials = %q %q", cfg.Username, cfg.Password)
	}
	if cfg.Verbose {
		t.Errorf("explicit --verbose=false must override the file")
	}
	if cfg.LockOwner != "from-file" {
		t.Errorf("unset flag must keep file value, got %q", cfg.LockOwner)
	}
	if cfg.LockTimeout != 30*time.Second || cfg.Timeout != 30*time.Second {
		t.Errorf("timeouts = %v %v", cfg.LockTimeout, cfg.Timeout)
	}
	if diff := cmp.Diff([]string{"ro", "allow_other"}, cfg.MountFlags); diff != "" {
		t.Errorf("mount flags mismatch (-want +got):\n%s", diff)
	}
	if cfg.Mountpoint != "/mnt/x" || cfg.URL != "http://cli.example/" {
		t.Errorf("positional = %q %q", cfg.Mountpoint, cfg.URL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if v, ok := cfg.LockTimeoutValue(); !ok || v.String() != "30" {
		t.Errorf("LockTimeoutValue = %v %v", v, ok)
	}
}

func TestValidate(t *testing.T) {
	if err := (&Config{}).Validate(); err == nil {
		t.Fatalf("empty config must not validate")
	}
	if _, ok := (&Config{}).LockTimeoutValue(); ok {
		t.Fatalf("zero lock timeout means no preference")
	}
}

func TestClientOptions(t *testing.T) {
	cfg := &Config{Username: "u", Password: "p", UserAgent: "ua", Timeout: time.Second}
	c, err := webdav.NewClient("http://dav.example/root", cfg.ClientOptions(logger.Discard())...)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.BaseURL() != "http://dav.example/root/" {
		t.Fatalf("BaseURL = %q", c.BaseURL())
	}
}
