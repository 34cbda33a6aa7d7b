package wasip1

// Oflags qualify how path_open treats the path's final component, per spec
// 6's flag-struct table.
const (
	OflagsCreat     uint16 = 1 << 0
	OflagsDirectory uint16 = 1 << 1
	OflagsExcl      uint16 = 1 << 2
	OflagsTrunc     uint16 = 1 << 3
)

// Fdflags affect how reads and writes against an open file descriptor
// behave. This runtime supports none of them: path_open clears NONBLOCK
// (the backend is always blocking) and rejects any other bit with NOSYS,
// and fd_fdstat_get always reports zero flags.
const (
	FdflagsAppend   uint16 = 1 << 0
	FdflagsDsync    uint16 = 1 << 1
	FdflagsNonblock uint16 = 1 << 2
	FdflagsRsync    uint16 = 1 << 3
	FdflagsSync     uint16 = 1 << 4
)

// Whence values for fd_seek.
const (
	WhenceSet uint8 = 0
	WhenceCur uint8 = 1
	WhenceEnd uint8 = 2
)

// Filetype values written into fdstat/filestat/dirent. Only DIRECTORY,
// REGULAR_FILE and (for fd_fdstat_get on stdin/stdout/stderr)
// CHARACTER_DEVICE are ever produced by this runtime: sockets, block devices
// and symlinks are Non-goals.
const (
	FiletypeUnknown        uint8 = 0
	FiletypeBlockDevice    uint8 = 1
	FiletypeCharacterDevice uint8 = 2
	FiletypeDirectory      uint8 = 3
	FiletypeRegularFile    uint8 = 4
	FiletypeSocketDgram    uint8 = 5
	FiletypeSocketStream   uint8 = 6
	FiletypeSymbolicLink   uint8 = 7
)

// Clockid selects the clock clock_time_get/clock_res_get reads.
const (
	ClockidRealtime          uint32 = 0
	ClockidMonotonic         uint32 = 1
	ClockidProcessCputimeID  uint32 = 2
	ClockidThreadCputimeID   uint32 = 3
)

// Lookupflags control whether path resolution follows a trailing symlink.
// This runtime has no symlinks, so SYMLINK_FOLLOW is accepted and ignored.
const (
	LookupflagsSymlinkFollow uint32 = 1 << 0
)

// rightsAll is handed out for every preopen and open file: this runtime does
// not model per-descriptor rights subsetting (spec Non-goal), so path_open
// always grants the full set rather than tracking which subset a guest
// requested.
const rightsAll uint64 = ^uint64(0)
