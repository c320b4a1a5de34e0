//go:build unix

package envfile

import (
	"os"
	"syscall"
)

// copyOwner gives path the owner of info. Only root may change owners, so
// failures are ignored.
func copyOwner(path string, info os.FileInfo) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return
	}
	_ = os.Chown(path, int(st.Uid), int(st.Gid))
}
