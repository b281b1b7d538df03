// Package identity derives content identifiers for source documents from
// filesystem metadata. Two schemes exist: the legacy form hashes the full
// relative path and breaks when a containing folder is renamed, while the
// stable form hashes only the file name and survives folder moves. Both
// are recomputed on every indexing run and serve purely as lookup keys
// into the previous run's chunk records.
package identity

import (
	"crypto/sha1"
	"encoding/hex"
	"io/fs"
	"path"
	"strconv"
)

// StableID hashes the file name, size and mtime (seconds). Insensitive to
// the document's location in the source tree.
func StableID(name string, size int64, mtimeUnix int64) string {
	return metaHash(path.Base(name), size, mtimeUnix)
}

// LegacyID hashes the full slash-separated relative path, size and mtime
// (seconds). Kept so documents indexed under the old scheme are found
// once and migrated to their stable ID.
func LegacyID(relPath string, size int64, mtimeUnix int64) string {
	return metaHash(relPath, size, mtimeUnix)
}

// FromFileInfo computes both identifiers for a file's stat result.
func FromFileInfo(relPath string, info fs.FileInfo) (stableID, legacyID string) {
	size := info.Size()
	mtime := info.ModTime().Unix()
	return StableID(info.Name(), size, mtime), LegacyID(relPath, size, mtime)
}

func metaHash(name string, size int64, mtimeUnix int64) string {
	h := sha1.New()
	h.Write([]byte(name))
	h.Write([]byte(strconv.FormatInt(size, 10)))
	h.Write([]byte(strconv.FormatInt(mtimeUnix, 10)))
	return hex.EncodeToString(h.Sum(nil))
}
