package models

import "time"

// ScanResult is a freshly built baseline together with what could not be read.
type ScanResult struct {
	Baseline *Baseline
	Failures []ScanFailure
	Stats    ScanStats
}

// ScanFailure records a file omitted from a baseline.
type ScanFailure struct {
	Path string
	Err  error
}

// ScanStats counts what a scan did.
type ScanStats struct {
	FilesSeen     int
	FilesHashed   int
	FilesFailed   int
	FilesExcluded int
	TextSnapshots int
	BytesHashed   int64
	Duration      time.Duration
}

// VerifyResult is the outcome of checking a tree against its trusted baseline.
type VerifyResult struct {
	Baseline *Baseline
	Current  *ScanResult
	Diff     *DiffResult
}
