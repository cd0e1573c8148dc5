package runstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// DiskStore wraps a MemoryStore and persists the full run list as a
// single JSON file after every mutation: sorted by CreatedAt ascending,
// written atomically via a sibling "*.tmp" file, fsync, then rename
// over the target. A crash between write and rename leaves the
// previous valid snapshot in place.
//
// Every mutation holds the DiskStore's own mutex across both the
// in-memory update and the persist, so persistence and the in-memory
// view never drift out of lockstep.
type DiskStore struct {
	mem  *MemoryStore
	path string

	mu sync.Mutex
}

// Open loads path if it exists (a parse failure is a hard error) and
// returns a DiskStore ready to serve requests. A missing file is not an
// error: the store starts empty.
func Open(path string) (*DiskStore, error) {
	d := &DiskStore{mem: NewMemoryStore(), path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return d, nil
		}
		return nil, fmt.Errorf("runstore: read %s: %w", path, err)
	}
	if len(data) == 0 {
		return d, nil
	}

	var recs []Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("runstore: parse %s: %w", path, err)
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].CreatedAt.Before(recs[j].CreatedAt) })
	d.mem.loadAll(recs)
	return d, nil
}

func (d *DiskStore) CreateRun(req Request) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id, err := d.mem.CreateRun(req)
	if err != nil {
		return "", err
	}
	return id, d.persistLocked()
}

func (d *DiskStore) UpdateStatus(id string, status Status) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.mem.UpdateStatus(id, status); err != nil {
		return err
	}
	return d.persistLocked()
}

func (d *DiskStore) AppendEvent(id string, ev Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.mem.AppendEvent(id, ev); err != nil {
		return err
	}
	return d.persistLocked()
}

func (d *DiskStore) Run(id string) (Record, error) {
	return d.mem.Run(id)
}

func (d *DiskStore) Status(id string) (Status, error) {
	return d.mem.Status(id)
}

func (d *DiskStore) History(limit int) ([]Record, error) {
	return d.mem.History(limit)
}

func (d *DiskStore) Stop(id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	stopped, err := d.mem.Stop(id)
	if err != nil {
		return false, err
	}
	if !stopped {
		return false, nil
	}
	return true, d.persistLocked()
}

// persistLocked serializes the full, creation-order-sorted run list and
// atomically replaces the store file. Caller must hold d.mu.
func (d *DiskStore) persistLocked() error {
	recs := d.mem.snapshotAll()
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].CreatedAt.Before(recs[j].CreatedAt) })

	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("runstore: marshal: %w", err)
	}

	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("runstore: create dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".runs-*.tmp")
	if err != nil {
		return fmt.Errorf("runstore: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	_, writeErr := tmp.Write(data)
	syncErr := tmp.Sync()
	closeErr := tmp.Close()
	if writeErr != nil || syncErr != nil || closeErr != nil {
		os.Remove(tmpName)
		if writeErr != nil {
			return fmt.Errorf("runstore: write temp file: %w", writeErr)
		}
		if syncErr != nil {
			return fmt.Errorf("runstore: fsync temp file: %w", syncErr)
		}
		return fmt.Errorf("runstore: close temp file: %w", closeErr)
	}
	if err := os.Rename(tmpName, d.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("runstore: rename into place: %w", err)
	}
	return nil
}
