package integrity_checker

import (
	"sync"
	"time"

	"github.com/meysamhadeli/verilite/integrity_checker/models"
)

// scanStats tracks counters while a scan's workers run
type scanStats struct {
	filesSeen     int
	filesHashed   int
	filesFailed   int
	filesExcluded int
	textSnapshots int
	bytesHashed   int64
	startTime     time.Time
	mutex         sync.Mutex
}

func newScanStats() *scanStats {
	return &scanStats{startTime: time.Now()}
}

// recordSeen increments the counter of regular files found by the walk
func (s *scanStats) recordSeen() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.filesSeen++
}

// recordExcluded counts a file skipped by an exclusion rule
func (s *scanStats) recordExcluded() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.filesSeen++
	s.filesExcluded++
}

// recordHashed counts a record built successfully
func (s *scanStats) recordHashed(record *models.FileRecord) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.filesHashed++
	s.bytesHashed += record.Size
	if record.Text != nil {
		s.textSnapshots++
	}
}

// recordFailed counts a file that was omitted from the baseline
func (s *scanStats) recordFailed() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.filesFailed++
}

// snapshot returns the counters accumulated so far
func (s *scanStats) snapshot() models.ScanStats {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return models.ScanStats{
		FilesSeen:     s.filesSeen,
		FilesHashed:   s.filesHashed,
		FilesFailed:   s.filesFailed,
		FilesExcluded: s.filesExcluded,
		TextSnapshots: s.textSnapshots,
		BytesHashed:   s.bytesHashed,
		Duration:      time.Since(s.startTime),
	}
}

// StatsSummary flattens scan statistics for logs and JSON reports
func StatsSummary(stats models.ScanStats) map[string]interface{} {
	filesPerSecond := 0.0
	if stats.Duration.Seconds() > 0 {
		filesPerSecond = float64(stats.FilesHashed) / stats.Duration.Seconds()
	}

	return map[string]interface{}{
		"files_seen":       stats.FilesSeen,
		"files_hashed":     stats.FilesHashed,
		"files_failed":     stats.FilesFailed,
		"files_excluded":   stats.FilesExcluded,
		"text_snapshots":   stats.TextSnapshots,
		"bytes_hashed":     stats.BytesHashed,
		"duration_seconds": stats.Duration.Seconds(),
		"duration_human":   stats.Duration.String(),
		"files_per_second": filesPerSecond,
	}
}
