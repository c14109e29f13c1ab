package webdav

// HTTP methods used in WebDAV protocol
const (
	GET       = "GET"
	HEAD      = "HEAD"
	PUT       = "PUT"
	DELETE    = "DELETE"
	PROPFIND  = "PROPFIND"
	PROPPATCH = "PROPPATCH"
	MKCOL     = "MKCOL"
	MOVE      = "MOVE"
	COPY      = "COPY"
	LOCK      = "LOCK"
	UNLOCK    = "UNLOCK"
	OPTIONS   = "OPTIONS"
)

// HTTP status codes used in WebDAV protocol
const (
	StatusMultiStatus         = 207
	StatusUnprocessableEntity = 422
	StatusLocked              = 423
	StatusFailedDependency    = 424
	StatusInsufficientStorage = 507
)

const (
	xmlContentType     = `application/xml; charset="utf-8"`
	defaultContentType = "application/octet-stream"
)
