package json

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fwojciec/parley"
	"github.com/google/uuid"
)

// Ext is the chat log file extension.
const Ext = ".json"

// Save writes a Conversation to path, creating parent directories as needed.
// The file is replaced atomically.
func Save(path string, c parley.Conversation) error {
	data, err := MarshalConversation(c)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) // best-effort cleanup
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Load reads a Conversation from a chat log file.
func Load(path string) (parley.Conversation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return parley.Conversation{}, fmt.Errorf("read file: %w", err)
	}
	return UnmarshalConversation(data)
}

// List returns the sorted names of the chat logs directly inside dir.
// A missing directory yields an empty list.
func List(dir string) ([]string, error) {
	var names []string
	err := doublestar.GlobWalk(os.DirFS(dir), "*"+Ext, func(path string, d iofs.DirEntry) error {
		if d.Type().IsRegular() {
			names = append(names, path)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list chat logs: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// FileName turns a free-form title into a chat log file name.
func FileName(title string) string {
	name := strings.TrimSpace(title)
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	if name == "" {
		name = "chat"
	}
	if !strings.HasSuffix(name, Ext) {
		name += Ext
	}
	return name
}

// BackupName returns the backup file name for t: the timestamp
// YYYYMMDD_HHMMSS followed by a random six character alphanumeric suffix.
func BackupName(t time.Time) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return t.Format("20060102_150405") + "_" + id[:6] + Ext
}

// Backup writes c into dir under a fresh [BackupName] and returns the path.
func Backup(dir string, c parley.Conversation, now time.Time) (string, error) {
	path := filepath.Join(dir, BackupName(now))
	if err := Save(path, c); err != nil {
		return "", fmt.Errorf("backup: %w", err)
	}
	return path, nil
}
