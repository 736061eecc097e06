package models

import "time"

// Bucket names used as keys in reports and savings estimates
const (
	BucketDuplicates  = "duplicates"
	BucketLargeFiles  = "large_files"
	BucketTempFiles   = "temp_files"
	BucketOldBackups  = "old_backups"
	BucketCompression = "compression"
)

// Buckets lists every bucket name in report order
var Buckets = []string{
	BucketDuplicates,
	BucketLargeFiles,
	BucketTempFiles,
	BucketOldBackups,
	BucketCompression,
}

// FileRecord describes a regular file found during a walk
type FileRecord struct {
	Path    string    `json:"path"`             // Absolute path
	Size    int64     `json:"size"`             // Size in bytes at walk time
	ModTime time.Time `json:"mod_time"`         // Modification time at walk time
	Seq     int64     `json:"seq"`              // Position in walk order
	Digest  string    `json:"digest,omitempty"` // Content digest, filled lazily by the hasher
}

// Age returns how long ago the file was last modified relative to now
func (r FileRecord) Age(now time.Time) time.Duration {
	return now.Sub(r.ModTime)
}

// DuplicateGroup is a set of files sharing the same content digest.
// Paths are in discovery order; Paths[0] is the keeper.
type DuplicateGroup struct {
	Digest string   `json:"digest"`
	Size   int64    `json:"size"` // Size of each member
	Paths  []string `json:"paths"`
}

// Reclaimable returns the bytes freed by removing every member but the keeper
func (g DuplicateGroup) Reclaimable() int64 {
	if len(g.Paths) < 2 {
		return 0
	}
	return g.Size * int64(len(g.Paths)-1)
}

// Contains reports whether path is a member of the group
func (g DuplicateGroup) Contains(path string) bool {
	for _, p := range g.Paths {
		if p == path {
			return true
		}
	}
	return false
}

// SizedPath pairs a path with its size for bucket listings
type SizedPath struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}
