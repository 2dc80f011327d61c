//go:build unix

package fsx

import (
	"os"
	"syscall"
	"testing"
)

func TestRename_TagsEXDEV(t *testing.T) {
	old := renameFunc
	renameFunc = func(src, dst string) error {
		return &os.LinkError{Op: "rename", Old: src, New: dst, Err: syscall.EXDEV}
	}
	defer func() { renameFunc = old }()

	err := Rename("/a", "/b")
	if !IsCrossDevice(err) {
		t.Fatalf("err = %T %v, want CrossDeviceError", err, err)
	}
}

func TestRename_PassesOtherErrors(t *testing.T) {
	old := renameFunc
	renameFunc = func(string, string) error { return os.ErrPermission }
	defer func() { renameFunc = old }()

	if err := Rename("/a", "/b"); IsCrossDevice(err) || err == nil {
		t.Fatalf("err = %v", err)
	}
}
