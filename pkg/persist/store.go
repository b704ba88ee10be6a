package persist

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/creachadair/atomicfile"
)

// stateFileMode is the permission of written state files.
const stateFileMode = 0o644

// StatePath returns the file that holds basename under dir for codec.
func StatePath(dir, basename string, codec Codec) string {
	return filepath.Join(dir, basename+codec.Extension())
}

// SaveState encodes state into dir. The file is replaced atomically: readers
// see either the previous content or the complete new one.
func SaveState(dir, basename string, codec Codec, state any) error {
	path := StatePath(dir, basename, codec)

	file, err := atomicfile.New(path, stateFileMode)
	if err != nil {
		return fmt.Errorf("create state file: %w", err)
	}

	if err := codec.Encode(file, state); err != nil {
		file.Cancel()

		return fmt.Errorf("encode state: %w", err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("commit state file: %w", err)
	}

	return nil
}

// LoadState decodes the file written by SaveState into state, which must be
// a pointer.
func LoadState(dir, basename string, codec Codec, state any) error {
	file, err := os.Open(StatePath(dir, basename, codec))
	if err != nil {
		return fmt.Errorf("open state file: %w", err)
	}
	defer file.Close()

	if err := codec.Decode(file, state); err != nil {
		return fmt.Errorf("decode state: %w", err)
	}

	return nil
}
