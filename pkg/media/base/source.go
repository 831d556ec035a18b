/*
   MediaDrive - removable media resolution for PC emulators
   Copyright (c) 2025, Alexander Vollschwitz

   This file is part of MediaDrive.

   MediaDrive is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   MediaDrive is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with MediaDrive. If not, see <http://www.gnu.org/licenses/>.
*/

package base

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// SourceType tags the variant of a Source.
type SourceType int

const (
	SourceLocalPath SourceType = iota
	SourceArchiveEntry
	SourceRemoteURL
	SourceStorage
	SourceDirectory
)

//
func (t SourceType) String() string {
	switch t {
	case SourceLocalPath:
		return "local"
	case SourceArchiveEntry:
		return "archive-entry"
	case SourceRemoteURL:
		return "remote"
	case SourceStorage:
		return "storage"
	case SourceDirectory:
		return "directory"
	}
	return "invalid"
}

const (
	// BaseDirToken may lead a local path and is replaced by the configured base
	// directory.
	BaseDirToken = "$basedir$"
	// EntrySeparator separates an archive source from an entry name.
	EntrySeparator = "!"
	// StoragePrefix marks a browser storage key.
	StoragePrefix = "storage:"
	// DirectoryPrefix marks a host directory a floppy gets built from.
	DirectoryPrefix = "dir:"
)

// extensions of containers that can hold images, see IsArchiveName
var archiveExtensions = map[string]bool{
	"zip": true, "imz": true, "7z": true, "rar": true, "gz": true, "gzip": true,
}

// IsArchiveName reports whether name ends in the extension of a container
// that can hold images.
func IsArchiveName(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return len(ext) > 1 && archiveExtensions[ext[1:]]
}

// Source identifies where the bytes of a medium come from, not what they are.
// It is immutable once constructed.
type Source struct {
	typ     SourceType
	path    string  // local path, URL, storage key, or directory
	archive *Source // for archive entries
	entry   string
}

//
func NewLocalSource(path string) *Source {
	return &Source{typ: SourceLocalPath, path: filepath.Clean(path)}
}

//
func NewRemoteSource(u string) *Source {
	return &Source{typ: SourceRemoteURL, path: u}
}

//
func NewStorageSource(key string) *Source {
	return &Source{typ: SourceStorage, path: key}
}

// NewDirectorySource creates a source for a floppy built from the contents of
// a host directory.
func NewDirectorySource(path string) *Source {
	return &Source{typ: SourceDirectory, path: filepath.Clean(path)}
}

// NewArchiveEntrySource creates a source for entry within archive. An empty
// entry name leaves the choice of entry to the archive selector.
func NewArchiveEntrySource(archive *Source, entry string) *Source {
	return &Source{typ: SourceArchiveEntry, archive: archive, entry: entry}
}

/*
	ParseSource parses a user supplied source reference:

		http(s)://host/path       remote URL
		storage:<key>             browser storage key
		dir:<path>                host directory to build a floppy from
		<source>!<entry>          entry within an archive; entry names are case
		                          sensitive and may be empty
		anything else             local path, optionally starting with $basedir$

	A '!' only separates an entry when what precedes it names an archive, so
	file names like Games!.img stay intact.
*/
func ParseSource(s, baseDir string) (*Source, error) {

	s = strings.TrimSpace(s)
	if s == "" {
		return nil, Errorf(KindInvalidPath, "parse source", s, "empty source")
	}

	if ix := entrySeparatorIndex(s); ix > 0 {
		archive, err := ParseSource(s[:ix], baseDir)
		if err != nil {
			return nil, err
		}
		if archive.IsArchiveEntry() {
			return nil, Errorf(KindInvalidPath, "parse source", s,
				"nested archive entries are not supported")
		}
		return NewArchiveEntrySource(archive, s[ix+1:]), nil
	}

	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		if _, err := url.ParseRequestURI(s); err != nil {
			return nil, NewError(KindInvalidPath, "parse source", s, err)
		}
		return NewRemoteSource(s), nil
	}

	if strings.HasPrefix(s, StoragePrefix) {
		key := strings.TrimPrefix(s, StoragePrefix)
		if key == "" {
			return nil, Errorf(KindInvalidPath, "parse source", s, "empty storage key")
		}
		return NewStorageSource(key), nil
	}

	if strings.HasPrefix(s, DirectoryPrefix) {
		dir, err := ResolveBaseDir(strings.TrimPrefix(s, DirectoryPrefix), baseDir)
		if err != nil {
			return nil, err
		}
		if dir == "" {
			return nil, Errorf(KindInvalidPath, "parse source", s, "empty directory")
		}
		return NewDirectorySource(dir), nil
	}

	path, err := ResolveBaseDir(s, baseDir)
	if err != nil {
		return nil, err
	}
	return NewLocalSource(path), nil
}

// entrySeparatorIndex returns the position of the right most separator that
// follows an archive name, -1 if there is none.
func entrySeparatorIndex(s string) int {
	ix := strings.LastIndex(s, EntrySeparator)
	for ix > 0 {
		if IsArchiveName(s[:ix]) {
			return ix
		}
		ix = strings.LastIndex(s[:ix], EntrySeparator)
	}
	return -1
}

// ResolveBaseDir substitutes a leading base directory token in path. The token
// may only occur once, at the very start.
func ResolveBaseDir(path, baseDir string) (string, error) {

	switch strings.Count(path, BaseDirToken) {
	case 0:
		return path, nil
	case 1:
		if strings.HasPrefix(path, BaseDirToken) {
			if baseDir == "" {
				return "", Errorf(KindInvalidPath, "resolve path", path,
					"no base directory configured")
			}
			return filepath.Join(baseDir, strings.TrimPrefix(path, BaseDirToken)), nil
		}
	}

	return "", Errorf(KindInvalidPath, "resolve path", path,
		"replacement token should only occur at start")
}

//
func (s *Source) Type() SourceType {
	return s.typ
}

// Path returns the local path, URL, or storage key, depending on type. For
// archive entries, it returns the path of the enclosing archive.
func (s *Source) Path() string {
	if s.typ == SourceArchiveEntry {
		return s.archive.Path()
	}
	return s.path
}

//
func (s *Source) Archive() *Source {
	return s.archive
}

//
func (s *Source) Entry() string {
	return s.entry
}

//
func (s *Source) IsArchiveEntry() bool {
	return s.typ == SourceArchiveEntry
}

// Name returns a short display name, i.e. the last path element of the file,
// URL, key, or archive entry.
func (s *Source) Name() string {
	switch s.typ {
	case SourceArchiveEntry:
		if s.entry != "" {
			return s.entry[strings.LastIndex(s.entry, "/")+1:]
		}
		return s.archive.Name()
	case SourceRemoteURL:
		if u, err := url.Parse(s.path); err == nil && u.Path != "" {
			return u.Path[strings.LastIndex(u.Path, "/")+1:]
		}
	}
	return filepath.Base(s.path)
}

// Key returns the canonical identity of this source, used for write
// exclusivity and fingerprint bookkeeping.
func (s *Source) Key() string {
	switch s.typ {
	case SourceLocalPath:
		if abs, err := filepath.Abs(s.path); err == nil {
			return "local:" + abs
		}
		return "local:" + s.path
	case SourceRemoteURL:
		return "remote:" + s.path
	case SourceStorage:
		return StoragePrefix + s.path
	case SourceDirectory:
		if abs, err := filepath.Abs(s.path); err == nil {
			return DirectoryPrefix + abs
		}
		return DirectoryPrefix + s.path
	case SourceArchiveEntry:
		return s.archive.Key() + EntrySeparator + s.entry
	}
	return ""
}

//
func (s *Source) String() string {
	switch s.typ {
	case SourceArchiveEntry:
		return fmt.Sprintf("%s%s%s", s.archive, EntrySeparator, s.entry)
	case SourceStorage:
		return StoragePrefix + s.path
	case SourceDirectory:
		return DirectoryPrefix + s.path
	}
	return s.path
}
