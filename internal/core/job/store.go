package job

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Store is the file-resident descriptor store. One directory per job id
// under root, each holding the job.json descriptor, the inputs subtree,
// logs, and (after success) the result archive. There is no in-memory
// registry: the descriptor on disk is the single source of truth.
//
// All descriptor mutations go through a per-job mutex so that a
// read-modify-write never interleaves with another for the same id.
type Store struct {
	root string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, ioErrorf("create job root", err)
	}
	return &Store{
		root:  root,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

// Root returns the directory holding all job working directories.
func (s *Store) Root() string { return s.root }

// Dir returns the job's working directory.
func (s *Store) Dir(id string) string {
	return filepath.Join(s.root, id)
}

func (s *Store) descriptorPath(id string) string {
	return filepath.Join(s.Dir(id), DescriptorName)
}

func (s *Store) lock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// Get loads the descriptor for id, or ErrNotFound when the job directory
// or descriptor does not exist.
func (s *Store) Get(id string) (*Job, error) {
	l := s.lock(id)
	l.Lock()
	defer l.Unlock()
	return s.read(id)
}

func (s *Store) read(id string) (*Job, error) {
	data, err := os.ReadFile(s.descriptorPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, ioErrorf("read descriptor", err)
	}
	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, ioErrorf("decode descriptor", err)
	}
	return &j, nil
}

// Create persists the initial descriptor. The job's working directory
// must already exist; the write is atomic so a crash never leaves a
// descriptor claiming success.
func (s *Store) Create(j *Job) error {
	l := s.lock(j.ID)
	l.Lock()
	defer l.Unlock()

	if _, err := os.Stat(s.descriptorPath(j.ID)); err == nil {
		return ioErrorf("create descriptor", fmt.Errorf("job %s already exists", j.ID))
	}
	return s.write(j)
}

// write atomically replaces the descriptor via temp file + rename.
func (s *Store) write(j *Job) error {
	data, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return ioErrorf("encode descriptor", err)
	}

	dir := s.Dir(j.ID)
	tmp, err := os.CreateTemp(dir, DescriptorName+".tmp*")
	if err != nil {
		return ioErrorf("write descriptor", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return ioErrorf("write descriptor", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return ioErrorf("write descriptor", err)
	}
	if err := os.Rename(tmpName, s.descriptorPath(j.ID)); err != nil {
		os.Remove(tmpName)
		return ioErrorf("write descriptor", err)
	}
	return nil
}

// Transition performs a compare-and-swap on the job's status: it loads
// the descriptor under the per-job lock, verifies the current status is
// from, applies mutate (which may fill command, archive, or error log
// fields), sets the status to, and persists atomically. A status
// mismatch returns *ConflictError and writes nothing; this is what
// closes the concurrent double-trigger race.
func (s *Store) Transition(id string, from, to Status, mutate func(*Job)) (*Job, error) {
	if !from.CanTransition(to) {
		return nil, fmt.Errorf("illegal transition %s -> %s", from, to)
	}

	l := s.lock(id)
	l.Lock()
	defer l.Unlock()

	j, err := s.read(id)
	if err != nil {
		return nil, err
	}
	if j.Status != from {
		return nil, &ConflictError{ID: id, Expected: from, Current: j.Status}
	}

	if mutate != nil {
		mutate(j)
	}
	j.Status = to
	if err := s.write(j); err != nil {
		return nil, err
	}
	return j, nil
}

// CountActiveByOwner derives the owner's active-job count by scanning
// every descriptor under root for status processing. The count is never
// stored directly.
func (s *Store) CountActiveByOwner(owner string) (int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, ioErrorf("scan job root", err)
	}

	active := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		j, err := s.read(e.Name())
		if err != nil {
			// Directories without a readable descriptor (mid-intake or
			// foreign) do not count against the quota.
			continue
		}
		if j.Owner == owner && j.Status == StatusProcessing {
			active++
		}
	}
	return active, nil
}

// ListByOwner returns the owner's jobs, newest first.
func (s *Store) ListByOwner(owner string) ([]*Job, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, ioErrorf("scan job root", err)
	}

	var jobs []*Job
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		j, err := s.read(e.Name())
		if err != nil {
			continue
		}
		if j.Owner == owner {
			jobs = append(jobs, j)
		}
	}
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].CreatedAt.After(jobs[k].CreatedAt) })
	return jobs, nil
}
