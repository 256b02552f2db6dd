//go:build !windows

package utils

import (
	"fmt"
	"syscall"

	"github.com/kavach/engine/pkg/logger"
)

// DiskSpaceChecker verifica espacio disponible antes de aceptar uploads
type DiskSpaceChecker struct {
	logger *logger.Logger
}

// NewDiskSpaceChecker crea un nuevo checker de espacio en disco
func NewDiskSpaceChecker(log *logger.Logger) *DiskSpaceChecker {
	return &DiskSpaceChecker{logger: log}
}

// GetDiskSpace obtiene espacio disponible y total en bytes
func (dsc *DiskSpaceChecker) GetDiskSpace(path string) (available uint64, total uint64, err error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, 0, fmt.Errorf("failed to stat filesystem: %w", err)
	}
	available = stat.Bavail * uint64(stat.Bsize)
	total = stat.Blocks * uint64(stat.Bsize)
	return available, total, nil
}

// CheckSpaceForFile verifica que quepa un archivo de fileSize bytes más un margen
func (dsc *DiskSpaceChecker) CheckSpaceForFile(path string, fileSize int64, marginPercent int) error {
	available, total, err := dsc.GetDiskSpace(path)
	if err != nil {
		return err
	}

	if marginPercent <= 0 {
		marginPercent = 20
	}
	required := fileSize + fileSize*int64(marginPercent)/100

	if uint64(required) > available {
		return fmt.Errorf("insufficient space for file: need %dMB, available %dMB",
			required/(1024*1024), available/(1024*1024))
	}

	if total > 0 && (total-available)*100/total > 90 {
		dsc.logger.Warn("💾 Disk space running low",
			"path", path,
			"available_mb", available/(1024*1024),
		)
	}
	return nil
}
