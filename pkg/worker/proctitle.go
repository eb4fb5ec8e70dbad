package worker

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// setProcTitle best-effort sets the process's comm name via prctl(2). This
// is visible in `ps -o comm` and /proc/<pid>/comm but, unlike rewriting
// argv, cannot change what `ps -o args` shows without unsafely overwriting
// argv's backing memory — acceptable for a supervisor whose operator is
// expected to read `status`, not `ps`, for the canonical worker listing.
func setProcTitle(title string) {
	if len(title) > 15 {
		title = title[:15]
	}
	b := append([]byte(title), 0)
	_ = unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(&b[0])), 0, 0, 0)
}
