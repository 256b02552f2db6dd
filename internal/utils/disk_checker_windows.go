//go:build windows

package utils

import (
	"fmt"

	"github.com/kavach/engine/pkg/logger"
)

// DiskSpaceChecker en Windows no consulta el sistema de archivos
type DiskSpaceChecker struct {
	logger *logger.Logger
}

// NewDiskSpaceChecker crea un checker
func NewDiskSpaceChecker(log *logger.Logger) *DiskSpaceChecker {
	return &DiskSpaceChecker{logger: log}
}

// GetDiskSpace no está soportado en Windows
func (dsc *DiskSpaceChecker) GetDiskSpace(path string) (uint64, uint64, error) {
	return 0, 0, fmt.Errorf("disk space check not supported on windows")
}

// CheckSpaceForFile asume espacio suficiente
func (dsc *DiskSpaceChecker) CheckSpaceForFile(path string, fileSize int64, marginPercent int) error {
	return nil
}
