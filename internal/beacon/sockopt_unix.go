//go:build unix

package beacon

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// control enables SO_BROADCAST and SO_REUSEADDR so several clients on one
// host can wait for the same beacon port.
func control(_, _ string, c syscall.RawConn) error {
	var serr error
	err := c.Control(func(fd uintptr) {
		serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
		if serr != nil {
			return
		}
		serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return serr
}
