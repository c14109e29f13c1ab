// Command memdav serves a scratch WebDAV share for trying out mounts
// without a real server.
package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	flag "github.com/spf13/pflag"
	"golang.org/x/net/webdav"

	"github.com/davmount/internal/core/davlocks"
	"github.com/davmount/internal/core/logger"
)

func main() {
	var (
		addr    = flag.StringP("addr", "l", "127.0.0.1:8080", "listen address")
		dir     = flag.StringP("dir", "d", "", "serve this directory instead of memory")
		prefix  = flag.String("prefix", "", "URL path prefix of the share")
		verbose = flag.BoolP("verbose", "v", false, "log every request")
	)
	flag.Parse()

	log, err := logger.New(*verbose, "stdout", "stderr")
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}
	defer log.Close()

	var fs webdav.FileSystem = webdav.NewMemFS()
	if *dir != "" {
		fs = webdav.Dir(*dir)
	}

	h := &webdav.Handler{
		Prefix:     *prefix,
		FileSystem: fs,
		LockSystem: davlocks.NewMem(),
		Logger: func(r *http.Request, err error) {
			if err != nil {
				log.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
				return
			}
			log.Logf("%s %s", r.Method, r.URL.Path)
		},
	}

	fmt.Printf("serving WebDAV on http://%s%s/\n", *addr, *prefix)
	if err := http.ListenAndServe(*addr, h); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorf("listen: %v", err)
		os.Exit(1)
	}
}
