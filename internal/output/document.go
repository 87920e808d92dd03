package output

import (
	"fmt"
	"os"
)

// DocumentInserter places text at the cursor of the active document.
// Implementations must treat "no document focused" as a no-op.
type DocumentInserter interface {
	InsertAtCursor(text string) error
}

// NoopInserter is used when no document target is configured.
type NoopInserter struct{}

func (NoopInserter) InsertAtCursor(text string) error { return nil }

// JournalInserter appends to a markdown journal file, the CLI's stand-in
// for an editor cursor.
type JournalInserter struct {
	Path string
}

func NewJournalInserter(path string) *JournalInserter {
	return &JournalInserter{Path: path}
}

func (j *JournalInserter) InsertAtCursor(text string) error {
	if j.Path == "" {
		return nil
	}
	f, err := os.OpenFile(j.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open journal %s: %w", j.Path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(text + "\n"); err != nil {
		return fmt.Errorf("append to journal %s: %w", j.Path, err)
	}
	return nil
}
