//go:build unix

package mmap

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

func mapFile(f *os.File, size int, opt Options) ([]byte, bool, error) {
	flags := unix.MAP_SHARED
	if opt.Has(Prefault) {
		flags |= mapPopulate
	}

	b, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, flags)
	if err != nil {
		return nil, false, err
	}

	var advice int
	var adviceName string
	if opt.Has(SequentialAccess) {
		advice, adviceName = unix.MADV_SEQUENTIAL, "MADV_SEQUENTIAL"
	} else if opt.Has(RandomAccess) {
		advice, adviceName = unix.MADV_RANDOM, "MADV_RANDOM"
	}
	if adviceName != "" {
		// ENOSYS means the kernel ignores hints, mapping still works
		err = unix.Madvise(b, advice)
		if err != nil && !errors.Is(err, unix.ENOSYS) {
			_ = unix.Munmap(b)
			return nil, false, fmt.Errorf("madvise(%s): %w", adviceName, err)
		}
	}

	return b, true, nil
}

func munmap(b []byte) error {
	return unix.Munmap(b)
}
