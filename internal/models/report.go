package models

import "time"

// BucketSummary aggregates a single classification bucket
type BucketSummary struct {
	Count int         `json:"count"`
	Size  int64       `json:"total_size"`
	Files []SizedPath `json:"files"`
}

// Savings holds per-bucket recoverable-byte estimates
type Savings struct {
	Duplicates  int64 `json:"duplicates"`
	TempFiles   int64 `json:"temp_files"`
	OldBackups  int64 `json:"old_backups"`
	Compression int64 `json:"compression"`
}

// Total returns the sum of all bucket estimates
func (s Savings) Total() int64 {
	return s.Duplicates + s.TempFiles + s.OldBackups + s.Compression
}

// ByBucket returns the estimates keyed by bucket name
func (s Savings) ByBucket() map[string]int64 {
	return map[string]int64{
		BucketDuplicates:  s.Duplicates,
		BucketTempFiles:   s.TempFiles,
		BucketOldBackups:  s.OldBackups,
		BucketCompression: s.Compression,
	}
}

// Report is the structure handed to the presentation layer.
// Field names are stable and every numeric field is non-negative.
type Report struct {
	RunID            string                   `json:"run_id"`
	Root             string                   `json:"root"`
	GeneratedAt      time.Time                `json:"generated_at"`
	TotalFiles       int                      `json:"total_files"`
	TotalSize        int64                    `json:"total_size"`
	Buckets          map[string]BucketSummary `json:"buckets"`
	DuplicateGroups  []DuplicateGroup         `json:"duplicate_groups"`
	SizeDistribution map[int64]int            `json:"size_distribution"`
	Savings          Savings                  `json:"savings"`
}
