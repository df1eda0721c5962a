package defs

/// Err_t is the kernel-wide error type. Zero means success; a non-zero
/// value is always returned negated across the syscall boundary (a0 = -Err_t).
type Err_t int

// Resource exhaustion.
const (
	ENOMEM   Err_t = 12 /// out of physical frames
	ENOPROC  Err_t = 13 /// no free process slot
	ENOFILE  Err_t = 14 /// no free file-table entry
	ENOFD    Err_t = 15 /// no free descriptor slot in process
	ENOINODE Err_t = 16 /// inode cache exhausted
	ENOBUF   Err_t = 17 /// buffer cache exhausted
	ENOBLK   Err_t = 18 /// no free disk block
	ENOLOGSP Err_t = 19 /// log cannot admit another transaction right now
	ENOHEAP  Err_t = 24 /// a hart's resource budget (package res) is exhausted
)

// Bad arguments.
const (
	EFAULT  Err_t = 2  /// bad user pointer
	EINVAL  Err_t = 22 /// invalid argument
	EBADF   Err_t = 9  /// bad file descriptor
	ENOENT  Err_t = 1  /// path component not found
	ENOTDIR Err_t = 20 /// path component is not a directory
	EISDIR  Err_t = 21 /// expected a non-directory, found a directory
	EEXIST  Err_t = 23 /// create target already exists
	ENAMETOOLONG Err_t = 36 /// path exceeds MAX_PATH
	EPIPE        Err_t = 32 /// write end has no readers
)

// Process lifecycle.
const (
	ECHILD Err_t = 10 /// wait() with no children
	EINTR  Err_t = 4  /// interrupted by a pending kill
)

/// Errstring returns a short, human-readable description for diagnostics.
/// It is never relied on for control flow — only trap-return cares about
/// the numeric Err_t.
func Errstring(e Err_t) string {
	switch e {
	case 0:
		return "success"
	case ENOMEM:
		return "out of memory"
	case ENOPROC:
		return "no free process slot"
	case ENOFILE:
		return "no free file slot"
	case ENOFD:
		return "no free descriptor"
	case ENOINODE:
		return "inode cache exhausted"
	case ENOBUF:
		return "buffer cache exhausted"
	case ENOBLK:
		return "disk full"
	case ENOLOGSP:
		return "log full"
	case ENOHEAP:
		return "resource budget exhausted"
	case EFAULT:
		return "bad user pointer"
	case EINVAL:
		return "invalid argument"
	case EBADF:
		return "bad file descriptor"
	case ENOENT:
		return "no such file or directory"
	case ENOTDIR:
		return "not a directory"
	case EISDIR:
		return "is a directory"
	case EEXIST:
		return "already exists"
	case ENAMETOOLONG:
		return "path too long"
	case EPIPE:
		return "broken pipe"
	case ECHILD:
		return "no child processes"
	case EINTR:
		return "interrupted"
	default:
		return "unknown error"
	}
}
