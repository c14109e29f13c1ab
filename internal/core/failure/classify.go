package failure

// Classification is the outcome of Classify.
type Classification struct {
	Kind        Kind
	Description string
}

// descriptions holds the RFC 2518 status explanations for the methods whose
// failures are ambiguous without them.
var descriptions = map[string]map[int]string{
	"MOVE": {
		403: "Source and destination URIs are the same",
		409: "One or more parent collections are not found",
		412: "The server was unable to maintain the availability of the properties",
		423: "The source or the destination resource was locked",
		502: "The destination server refuses to accept the resource",
	},
	"COPY": {
		403: "Source and destination URIs are the same",
		409: "One or more parent collections are not found",
		412: "The server was unable to maintain the availability of the properties",
		423: "The destination resource was locked",
		502: "The destination server refuses to accept the resource",
		507: "Insufficient storage",
	},
	"LOCK": {
		412: "The lock token could not be enforced",
		423: "The resource is already locked",
	},
	"MKCOL": {
		403: "Permissions denied",
		405: "The resource already exists",
		409: "Cannot create a resource if all ancestors do not already exist",
		415: "The server does not support the request type of the body",
		507: "Insufficient storage",
	},
	"PROPPATCH": {
		403: "Properties cannot be set or removed",
		409: "Cannot set property to value provided",
		423: "The resource is locked",
		507: "Insufficient storage",
	},
}

// Classify tags status as a client or server failure and looks up the
// description for (method, status). Description is empty when the pair is
// not in the table.
func Classify(method string, status int) Classification {
	return Classification{
		Kind:        KindOf(status),
		Description: Description(method, status),
	}
}

// Description returns the RFC text for (method, status) or "".
func Description(method string, status int) string {
	return descriptions[method][status]
}
