package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/oshokin/implicit-session/internal/constants"
	"github.com/oshokin/implicit-session/internal/logger"
)

var (
	// ErrWriteSession is returned when the session file cannot be written.
	ErrWriteSession = errors.New("failed to write session file")
	// ErrReadSession is returned when the session file cannot be read or decoded.
	ErrReadSession = errors.New("failed to read session file")
	// ErrNilRecord is returned when there is nothing to persist.
	ErrNilRecord = errors.New("session record is nil")
)

// FilePersister writes session records to a JSON file.
type FilePersister struct {
	path string
}

// NewFilePersister creates a FilePersister writing to path.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Path returns the destination path.
func (p *FilePersister) Path() string {
	return p.path
}

// Persist serializes record and replaces the destination file atomically.
// The record is written to a temporary file in the same directory, flushed
// to disk and renamed over the destination, so a reader never sees a partial file.
// It returns the absolute path of the written file.
//
//nolint:cyclop,funlen // Each step of the atomic write needs its own error path.
func (p *FilePersister) Persist(ctx context.Context, record *Record) (string, error) {
	if record == nil {
		return "", fmt.Errorf("%w: %w", ErrWriteSession, ErrNilRecord)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: failed to encode session: %w", ErrWriteSession, err)
	}

	data = append(data, '\n')

	destination, err := filepath.Abs(p.path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrWriteSession, err)
	}

	folder := filepath.Dir(destination)
	if err = os.MkdirAll(folder, constants.DefaultFolderPermissions); err != nil {
		return "", fmt.Errorf("%w: failed to create folder %s: %w", ErrWriteSession, folder, err)
	}

	tempFile, err := os.CreateTemp(folder, "."+filepath.Base(destination)+"-*"+constants.ExtensionTemp)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create temporary file: %w", ErrWriteSession, err)
	}

	tempPath := tempFile.Name()
	renamed := false

	defer func() {
		if renamed {
			return
		}

		if removeErr := os.Remove(tempPath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			logger.Debugf(ctx, "Could not remove temporary file %s: %v", tempPath, removeErr)
		}
	}()

	if _, err = tempFile.Write(data); err != nil {
		tempFile.Close()

		return "", fmt.Errorf("%w: %w", ErrWriteSession, err)
	}

	if err = tempFile.Sync(); err != nil {
		tempFile.Close()

		return "", fmt.Errorf("%w: failed to flush temporary file: %w", ErrWriteSession, err)
	}

	if err = tempFile.Close(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrWriteSession, err)
	}

	if err = os.Chmod(tempPath, constants.SessionFilePermissions); err != nil {
		return "", fmt.Errorf("%w: %w", ErrWriteSession, err)
	}

	if err = os.Rename(tempPath, destination); err != nil {
		return "", fmt.Errorf("%w: failed to replace %s: %w", ErrWriteSession, destination, err)
	}

	renamed = true

	logger.Infof(ctx, "Session saved to %s (%s, %d cookies, %d local storage entries)",
		destination,
		humanize.Bytes(uint64(len(data))),
		len(record.Cookies),
		len(record.LocalStorage))

	return destination, nil
}

// Load reads a session record previously written by Persist.
func Load(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadSession, err)
	}

	var record Record
	if err = json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrReadSession, path, err)
	}

	return &record, nil
}
