// Package cron provides persistent storage for reminder jobs using JSONL format.
package cron

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
)

// JobsFilename is the default filename for the jobs file.
const JobsFilename = "jobs.jsonl"

// Storage keeps scheduled jobs in a JSONL file, one job per line.
type Storage struct {
	filePath string
	logger   *logger.Logger
	mu       sync.Mutex
}

// NewStorage creates a job storage backed by filePath.
func NewStorage(filePath string, log *logger.Logger) *Storage {
	return &Storage{
		filePath: filePath,
		logger:   log,
	}
}

// Path returns the jobs file path.
func (s *Storage) Path() string {
	return s.filePath
}

// Load reads jobs from the file. A missing file yields no jobs.
// Unparseable lines are logged and skipped.
func (s *Storage) Load() ([]Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Storage) load() ([]Job, error) {
	file, err := os.Open(s.filePath)
	if os.IsNotExist(err) {
		return []Job{}, nil
	}
	if err != nil {
		s.logger.Error("failed to open jobs file", err,
			logger.Field{Key: "file", Value: s.filePath})
		return nil, err
	}
	defer file.Close()

	var jobs []Job
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var job Job
		if err := json.Unmarshal(line, &job); err != nil {
			s.logger.Error("failed to unmarshal job line", err,
				logger.Field{Key: "file", Value: s.filePath},
				logger.Field{Key: "line", Value: lineNum})
			continue
		}
		jobs = append(jobs, job)
	}

	if err := scanner.Err(); err != nil {
		s.logger.Error("error scanning jobs file", err,
			logger.Field{Key: "file", Value: s.filePath})
		return nil, err
	}
	return jobs, nil
}

// Save replaces the file contents with jobs. The write goes to a temporary
// file that is then renamed over the real one.
func (s *Storage) Save(jobs []Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(jobs)
}

func (s *Storage) save(jobs []Job) error {
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		s.logger.Error("failed to create jobs directory", err,
			logger.Field{Key: "dir", Value: filepath.Dir(s.filePath)})
		return err
	}

	tmpPath := s.filePath + ".tmp"
	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		s.logger.Error("failed to create temporary jobs file", err,
			logger.Field{Key: "file", Value: tmpPath})
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	for _, job := range jobs {
		if err := enc.Encode(job); err != nil {
			s.logger.Error("failed to write job", err,
				logger.Field{Key: "job_id", Value: job.ID})
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if err := file.Sync(); err != nil {
		s.logger.Error("failed to sync temporary jobs file", err,
			logger.Field{Key: "file", Value: tmpPath})
		return err
	}

	if err := os.Rename(tmpPath, s.filePath); err != nil {
		s.logger.Error("failed to rename temporary jobs file", err,
			logger.Field{Key: "from", Value: tmpPath},
			logger.Field{Key: "to", Value: s.filePath})
		return err
	}

	s.logger.Debug("jobs saved",
		logger.Field{Key: "count", Value: len(jobs)},
		logger.Field{Key: "file", Value: s.filePath})
	return nil
}

// UpsertJob stores job, replacing the stored job with the same key.
func (s *Storage) UpsertJob(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs, err := s.load()
	if err != nil {
		return err
	}

	key := job.Key()
	found := false
	for i := range jobs {
		if jobs[i].Key() == key {
			jobs[i] = job
			found = true
			break
		}
	}
	if !found {
		jobs = append(jobs, job)
	}

	if err := s.save(jobs); err != nil {
		return err
	}
	s.logger.Debug("job upserted",
		logger.Field{Key: "job_id", Value: job.ID},
		logger.Field{Key: "updated", Value: found})
	return nil
}

// RemoveWhere deletes every stored job matching pred.
// The file is not rewritten when nothing matches.
func (s *Storage) RemoveWhere(pred func(Job) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs, err := s.load()
	if err != nil {
		return err
	}

	kept := jobs[:0]
	removed := 0
	for _, job := range jobs {
		if pred(job) {
			removed++
			continue
		}
		kept = append(kept, job)
	}
	if removed == 0 {
		return nil
	}
	return s.save(kept)
}

// RemoveReminder deletes every stored job of the reminder.
func (s *Storage) RemoveReminder(reminderID string) error {
	return s.RemoveWhere(func(j Job) bool { return j.Payload.ReminderID == reminderID })
}
