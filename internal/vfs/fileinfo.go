package vfs

import (
	"io/fs"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/davmount/internal/core/multistatus"
)

// statProps are the properties fetched for Stat and directory listings.
var statProps = []string{
	"D:getcontentlength",
	"D:resourcetype",
	"D:getlastmodified",
	"D:getcontenttype",
	"D:getetag",
	"D:creationdate",
}

// FileInfo implements os.FileInfo over a PROPFIND response.
type FileInfo struct {
	name        string
	size        int64
	modTime     time.Time
	created     time.Time
	dir         bool
	contentType string
	etag        string
}

func (fi *FileInfo) Name() string       { return fi.name }
func (fi *FileInfo) Size() int64        { return fi.size }
func (fi *FileInfo) ModTime() time.Time { return fi.modTime }
func (fi *FileInfo) IsDir() bool        { return fi.dir }
func (fi *FileInfo) Sys() any           { return nil }

func (fi *FileInfo) Mode() fs.FileMode {
	if fi.dir {
		return fs.ModeDir | 0o755
	}
	return 0o644
}

func (fi *FileInfo) ContentType() string     { return fi.contentType }
func (fi *FileInfo) ETag() string            { return fi.etag }
func (fi *FileInfo) CreationTime() time.Time { return fi.created }

func newFileInfo(name string, r multistatus.Response) *FileInfo {
	fi := &FileInfo{
		name:        name,
		dir:         r.IsCollection(),
		contentType: r.ContentType(),
		etag:        r.ETag(),
	}
	if n := r.ContentLength(); n > 0 && !fi.dir {
		fi.size = n
	}
	if t, ok := r.LastModified(); ok {
		fi.modTime = t
	}
	if t, ok := r.CreationDate(); ok {
		fi.created = t
		if fi.modTime.IsZero() {
			fi.modTime = t
		}
	}
	return fi
}

// hrefPath returns the unescaped path of an href without a trailing slash.
func hrefPath(href string) string {
	if u, err := url.Parse(href); err == nil {
		href = u.Path
	}
	if href != "/" {
		href = strings.TrimSuffix(href, "/")
	}
	return href
}

// baseName names the resource at p. The root is "/".
func baseName(p string) string {
	if p == "" {
		return "/"
	}
	return path.Base(p)
}
