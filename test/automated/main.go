package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/davmount/internal/core/logger"
	"github.com/davmount/internal/core/webdav"
	"github.com/davmount/internal/vfs"
	autochecks "github.com/davmount/test/automated/checks"
)

func assert(name string, err error) bool {
	if err != nil {
		fmt.Printf("[FAIL] %s: Error encoutered: %v\n", name, err)
		return false
	}
	fmt.Printf("[PASS] %s: Check succeeded\n", name)
	return true
}

func main() {
	var (
		user    = flag.StringP("user", "u", "", "username:password")
		mount   = flag.StringP("mount", "m", "", "also check this mounted directory")
		verbose = flag.BoolP("verbose", "v", false, "log every request")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [options] URL\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	log, err := logger.New(*verbose, "stdout", "stderr")
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}
	defer log.Close()

	opts := []webdav.Option{webdav.WithLogger(log)}
	if *user != "" {
		name, pass, _ := strings.Cut(*user, ":")
		opts = append(opts, webdav.WithAuth(name, pass))
	}
	client, err := webdav.NewClient(flag.Arg(0), opts...)
	if err != nil {
		assert("Client", err)
		os.Exit(1)
	}
	v := vfs.New(client, vfs.WithLogger(log), vfs.WithLockOwner("davmount-checks"))
	ctx := context.Background()

	if !assert("Prepare", autochecks.Prepare(ctx, v)) {
		os.Exit(1)
	}

	ok := true
	ok = assert("Round trip", autochecks.CheckRoundTrip(ctx, v)) && ok
	ok = assert("Listing", autochecks.CheckListing(ctx, v)) && ok
	ok = assert("Rename", autochecks.CheckRename(ctx, v)) && ok
	ok = assert("Locks", autochecks.CheckLocks(ctx, v)) && ok
	ok = assert("Recursive mkdir", autochecks.CheckRecursiveMkdir(ctx, v)) && ok
	if *mount != "" {
		if fi, err := os.Stat(*mount); err != nil || !fi.IsDir() {
			ok = assert("Mountpoint accessibility", fmt.Errorf("mountpoint not accessible or not a dir: %v", err)) && ok
		} else {
			ok = assert("Mount", autochecks.CheckMount(*mount)) && ok
		}
	}

	assert("Cleanup", autochecks.Cleanup(ctx, v))
	if !ok {
		os.Exit(1)
	}
}
