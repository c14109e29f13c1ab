package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/davmount/internal/core/config"
	"github.com/davmount/internal/core/helpers"
	"github.com/davmount/internal/core/logger"
	"github.com/davmount/internal/core/webdav"
	"github.com/davmount/internal/fs"
	"github.com/davmount/internal/vfs"
)

func main() {
	cfg, _, err := config.ParseCommandLineArgs()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to parse config/flags:", err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <mountpoint> <server>\n", os.Args[0])
		os.Exit(2)
	}

	log, err := logger.New(cfg.Verbose, cfg.StdLog, cfg.ErrLog)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Logf("mount=%q server=%q user=%q timeout=%s", cfg.Mountpoint, cfg.URL, cfg.Username, cfg.Timeout)

	client, err := webdav.NewClient(cfg.URL, cfg.ClientOptions(log)...)
	if err != nil {
		log.Errorf("webdav client: %v", err)
		os.Exit(1)
	}

	fmt.Println("Trying to connect to the server...")
	var res *webdav.Result[[]string]
	err = retry.Do(
		func() error {
			var err error
			res, err = client.ComplianceClasses(context.Background(), "")
			if err == nil && res.Err != nil {
				err = res.Err
			}
			return err
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.RetryIf(helpers.IsTransportErr),
		retry.OnRetry(func(n uint, err error) {
			log.Errorf("connect attempt %d failed: %v", n+1, err)
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		log.Errorf("webdav client: couldn't connect to the server: %v", err)
		os.Exit(1)
	}
	if !slices.Contains(res.Value, "1") {
		log.Errorf("server at %s does not advertise WebDAV class 1 (DAV: %v)", cfg.URL, res.Value)
		os.Exit(1)
	}
	fmt.Println("Server health check successful")
	log.Logf("server classes %v", res.Value)

	opts := []vfs.Option{vfs.WithLogger(log)}
	if cfg.LockOwner != "" {
		opts = append(opts, vfs.WithLockOwner(cfg.LockOwner))
	}
	if t, ok := cfg.LockTimeoutValue(); ok {
		opts = append(opts, vfs.WithLockTimeout(t))
	}
	filesystem := fs.New(vfs.New(client, opts...), log)

	defer filesystem.Unmount()
	if err := filesystem.Mount(cfg.Mountpoint, cfg.MountFlags); err != nil {
		log.Errorf("Mount failed: %v", err)
		os.Exit(1)
	}
}
