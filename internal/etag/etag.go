// Package etag computes and compares weak entity tags for notes.
package etag

import (
	"encoding/binary"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Generate returns a weak ETag (W/"...") derived from a note's identity and
// its last modification time. Any write that bumps updatedAt changes the tag.
func Generate(id uint, updatedAt time.Time) string {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(id))
	binary.BigEndian.PutUint64(buf[8:], uint64(updatedAt.UnixNano()))
	return `W/"` + strconv.FormatUint(xxhash.Sum64(buf[:]), 16) + `"`
}

// Parse extracts the opaque value from a strong ("v") or weak (W/"v") ETag.
func Parse(etagHeader string) string {
	etagHeader = strings.TrimSpace(etagHeader)
	etagHeader = strings.TrimPrefix(etagHeader, "W/")
	if len(etagHeader) >= 2 && etagHeader[0] == '"' && etagHeader[len(etagHeader)-1] == '"' {
		return etagHeader[1 : len(etagHeader)-1]
	}
	return etagHeader
}

// Match reports whether an If-Match header value is satisfied by current.
// An empty header imposes no precondition. "*" matches any existing note.
// The header may list several comma-separated tags.
func Match(ifMatch, current string) bool {
	if ifMatch == "" {
		return true
	}
	if strings.TrimSpace(ifMatch) == "*" {
		return current != ""
	}
	return listContains(ifMatch, current)
}

// NoneMatch reports whether an If-None-Match header value allows a full
// response. It returns false when the client already holds current and the
// handler should answer 304.
func NoneMatch(ifNoneMatch, current string) bool {
	if ifNoneMatch == "" {
		return true
	}
	if strings.TrimSpace(ifNoneMatch) == "*" {
		return current == ""
	}
	return !listContains(ifNoneMatch, current)
}

func listContains(header, current string) bool {
	want := Parse(current)
	for _, candidate := range strings.Split(header, ",") {
		if Parse(candidate) == want {
			return true
		}
	}
	return false
}
