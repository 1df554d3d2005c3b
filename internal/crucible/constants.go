package crucible

const (
	// DefaultControlHost is the authority the control surface answers on when
	// reached through the proxy; traffic addressed to it is never recorded or
	// replayed.
	DefaultControlHost = "crucible"

	// DefaultDataDir is the directory test cases are persisted under.
	DefaultDataDir = "tests"

	// MaxTestCaseActions bounds the contiguous index scan when loading a test
	// case from disk.
	MaxTestCaseActions = 100
)

const (
	// HeaderHost is the request authority header.
	HeaderHost = "Host"
	// HeaderContentType is the request content-type header.
	HeaderContentType = "Content-Type"
	// HeaderAuthorization is the standard authorization header.
	HeaderAuthorization = "Authorization"
	// HeaderAmzTarget is the header AWS JSON protocols use to indicate which
	// rpc method is being invoked.
	HeaderAmzTarget = "X-Amz-Target"
	// HeaderAmzDate is the sigv4 signing timestamp header.
	HeaderAmzDate = "X-Amz-Date"
)

// MustMatchHeaders are the headers a derived expectation pins by value when
// they are present on the recorded request.
var MustMatchHeaders = []string{HeaderHost, HeaderAmzTarget, HeaderContentType}

// MustExistHeaders are the headers a derived expectation requires to be
// present on every compliant request, whether or not they were observed.
var MustExistHeaders = []string{HeaderAuthorization, HeaderAmzDate}
