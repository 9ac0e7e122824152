package restyutil

import (
	"log/slog"
	"os"
	"path/filepath"
)

// Output receives a dump of every page retrieved by an instrumented client.
type Output interface {
	Write(name string, contents []byte)
}

// DirectoryOutput writes every dump as its own file inside a directory.
type DirectoryOutput struct {
	directory string
}

func NewDirectoryOutput(dir string) (DirectoryOutput, error) {
	err := os.MkdirAll(dir, 0777)
	if err != nil {
		return DirectoryOutput{}, err
	}
	return DirectoryOutput{directory: dir}, nil
}

func (o DirectoryOutput) Write(name string, contents []byte) {
	err := os.WriteFile(filepath.Join(o.directory, name), contents, 0600)
	if err != nil {
		slog.Warn("failed to write page dump", "name", name, "err", err)
	}
}
