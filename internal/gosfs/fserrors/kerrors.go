package fserrors

// Linux-style errno mirrors, used by the HTTP wire layer which reports a
// numeric code in the response body rather than an HTTP status for domain
// failures (same convention as the teacher's internal/pkg/kerrors).
const (
	EPERM   int64 = 1  // Operation not permitted
	ENOENT  int64 = 2  // No such file or directory
	ENOMEM  int64 = 12 // Out of memory
	EEXIST  int64 = 17 // File exists
	ENOTDIR int64 = 20 // Not a directory
	EISDIR  int64 = 21 // Is a directory
	EINVAL  int64 = 22 // Invalid argument
	ENOSPC  int64 = 28 // No space left on device

	ENOENT_NEG int64 = -ENOENT
	ENOMEM_NEG int64 = -ENOMEM
	EINVAL_NEG int64 = -EINVAL
	ENOSPC_NEG int64 = -ENOSPC
	EPERM_NEG  int64 = -EPERM
)

// WireCode maps a GOSFS Code onto the negative errno convention the HTTP
// handlers write into responses.
func WireCode(c Code) int64 {
	switch c {
	case InvalidArgument:
		return EINVAL_NEG
	case NotFound:
		return ENOENT_NEG
	case NoMemory:
		return ENOMEM_NEG
	case NoSpace:
		return ENOSPC_NEG
	case AccessDenied:
		return EPERM_NEG
	case InvalidFS:
		return EINVAL_NEG
	default:
		return ENOMEM_NEG
	}
}
