package limits

// Fixed-size resource ceilings named throughout spec.md §5. Unlike
// Syslimit_t above these bound array sizes at compile time; exhausting one
// is an ordinary Err_t return, never a panic (the buffer cache's eviction
// path is the sole documented exception: it panics if asked to evict with
// nothing evictable, which callers prevent by staying within MAX_OP_BLOCKS).
const (
	NCPU  = 8  /// harts the scheduler round-robins across
	NPROC = 64 /// process table slots

	NOFILE = 16  /// open files per process
	NFILE  = 100 /// system-wide open-file table entries

	NBUF = 30 /// buffer-cache entries

	LOG_SIZE      = 30 /// log data blocks (excludes the header block)
	MAX_OP_BLOCKS = 10 /// distinct blocks a single transaction may dirty

	NINODE = 50 /// in-memory inode cache entries

	MAX_ARG  = 32  /// exec argv entries
	MAX_PATH = 128 /// bytes in a resolved path

	// USER_STACK_PAGES is the number of usable stack pages exec maps above
	// a fresh image's guard page, grounded on original_source's
	// ov6_kernel_params::USER_STACK_PAGES (the distilled spec's exec
	// paragraph compresses this to "the upper page is the stack"; the
	// original's exact constant is followed here per spec's own rule for
	// resolving such compressions).
	USER_STACK_PAGES = 2

	DIRSIZ = 14 /// bytes of name in a directory entry

	PIPE_SIZE = 512 /// bytes in a pipe's ring buffer

	NUM_FS_INODES = 200 /// on-disk inode records
	FS_SIZE       = 2000 /// blocks in the whole filesystem image
)
