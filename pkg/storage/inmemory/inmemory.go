// Package inmemory provides an in-memory implementation of storage.Driver.
//
// All mutation happens under a single write lock, which gives the same
// atomicity guarantees as the transactional backends: a reader never
// observes a half-replaced memory set or a status that disagrees with the
// committed rows. Used for tests and for running without a database.
package inmemory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/reveriehq/reverie/pkg/memory"
	"github.com/reveriehq/reverie/pkg/storage"
)

// Driver implements storage.Driver using in-process maps.
type Driver struct {
	mu sync.RWMutex

	profiles map[string]*memory.Profile
	captures map[string]*memory.Capture
	memories map[string]*memory.Memory
}

// NewDriver creates a new in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		profiles: make(map[string]*memory.Profile),
		captures: make(map[string]*memory.Capture),
		memories: make(map[string]*memory.Memory),
	}
}

func (d *Driver) CreateProfile(_ context.Context, p *memory.Profile) error {
	if p == nil {
		return errors.New("cannot store nil profile")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if p.Default {
		for _, existing := range d.profiles {
			if existing.AccountID == p.AccountID {
				existing.Default = false
			}
		}
	}

	cp := *p
	d.profiles[p.ID] = &cp
	return nil
}

func (d *Driver) GetProfile(_ context.Context, id string) (*memory.Profile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.profiles[id]
	if !ok {
		return nil, storage.NotFoundError{Kind: "profile", ID: id}
	}

	cp := *p
	return &cp, nil
}

func (d *Driver) ListProfiles(_ context.Context, accountID string) ([]*memory.Profile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var result []*memory.Profile
	for _, p := range d.profiles {
		if p.AccountID == accountID {
			cp := *p
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

func (d *Driver) DeleteProfile(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.profiles[id]; !ok {
		return storage.NotFoundError{Kind: "profile", ID: id}
	}

	delete(d.profiles, id)
	for cid, c := range d.captures {
		if c.ProfileID == id {
			delete(d.captures, cid)
		}
	}
	for mid, m := range d.memories {
		if m.ProfileID == id {
			delete(d.memories, mid)
		}
	}

	return nil
}

func (d *Driver) CreateCapture(_ context.Context, c *memory.Capture) error {
	if c == nil {
		return errors.New("cannot store nil capture")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	cp := *c
	d.captures[c.ID] = &cp
	return nil
}

func (d *Driver) GetCapture(_ context.Context, id string) (*memory.Capture, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.captures[id]
	if !ok {
		return nil, storage.NotFoundError{Kind: "capture", ID: id}
	}

	cp := *c
	return &cp, nil
}

func (d *Driver) GetOwnedCapture(_ context.Context, profileID, id string) (*memory.Capture, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.captures[id]
	if !ok || c.ProfileID != profileID {
		return nil, storage.NotFoundError{Kind: "capture", ID: id}
	}

	cp := *c
	return &cp, nil
}

func (d *Driver) FindCaptureByFingerprint(_ context.Context, profileID, fp string) (*memory.Capture, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, c := range d.captures {
		if c.ProfileID == profileID && c.Fingerprint == fp {
			cp := *c
			return &cp, nil
		}
	}

	return nil, storage.NotFoundError{Kind: "capture"}
}

func (d *Driver) ListCaptures(_ context.Context, profileID string, status memory.CaptureStatus, cursor string, limit int) ([]*memory.Capture, string, error) {
	cur, err := storage.DecodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var all []*memory.Capture
	for _, c := range d.captures {
		if c.ProfileID != profileID {
			continue
		}
		if status != "" && c.Status != status {
			continue
		}
		if !cur.Zero() && !cur.Before(c.CreatedAt, c.ID) {
			continue
		}
		cp := *c
		all = append(all, &cp)
	}

	sortRecentFirst(all, func(c *memory.Capture) (time.Time, string) { return c.CreatedAt, c.ID })

	next := ""
	if len(all) > limit {
		all = all[:limit]
		last := all[len(all)-1]
		next = storage.EncodeCursor(storage.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return all, next, nil
}

func (d *Driver) TransitionCapture(_ context.Context, id string, from []memory.CaptureStatus, to memory.CaptureStatus) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.captures[id]
	if !ok {
		return storage.NotFoundError{Kind: "capture", ID: id}
	}

	for _, st := range from {
		if c.Status == st {
			c.Status = to
			c.UpdatedAt = time.Now().UTC()
			return nil
		}
	}

	return storage.ConflictError{ID: id, Status: string(c.Status)}
}

func (d *Driver) FailCapture(_ context.Context, id, reason string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.captures[id]
	if !ok {
		return storage.NotFoundError{Kind: "capture", ID: id}
	}

	c.Status = memory.StatusFailed
	c.ErrorDetail = reason
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (d *Driver) CommitExtraction(_ context.Context, captureID string, mems []*memory.Memory) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.captures[captureID]
	if !ok {
		return storage.NotFoundError{Kind: "capture", ID: captureID}
	}
	if c.Status != memory.StatusProcessing {
		return storage.ConflictError{ID: captureID, Status: string(c.Status)}
	}

	// Replace the prior attempt's set wholesale.
	for mid, m := range d.memories {
		if m.CaptureID != nil && *m.CaptureID == captureID {
			delete(d.memories, mid)
		}
	}
	for _, m := range mems {
		cp := *m
		d.memories[m.ID] = &cp
	}

	c.Status = memory.StatusCompleted
	c.MemoryCount = len(mems)
	c.ErrorDetail = ""
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (d *Driver) DeleteCapture(_ context.Context, profileID, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.captures[id]
	if !ok || c.ProfileID != profileID {
		return storage.NotFoundError{Kind: "capture", ID: id}
	}

	for _, m := range d.memories {
		if m.CaptureID != nil && *m.CaptureID == id {
			m.CaptureID = nil
		}
	}

	delete(d.captures, id)
	return nil
}

func (d *Driver) CreateMemory(_ context.Context, m *memory.Memory) error {
	if m == nil {
		return errors.New("cannot store nil memory")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	cp := *m
	d.memories[m.ID] = &cp
	return nil
}

func (d *Driver) GetMemory(_ context.Context, profileID, id string) (*memory.Memory, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	m, ok := d.memories[id]
	if !ok || m.ProfileID != profileID {
		return nil, storage.NotFoundError{Kind: "memory", ID: id}
	}

	cp := *m
	return &cp, nil
}

func (d *Driver) ListMemories(_ context.Context, profileID string, category *memory.Category, cursor string, limit int) ([]*memory.Memory, string, error) {
	cur, err := storage.DecodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var all []*memory.Memory
	for _, m := range d.memories {
		if m.ProfileID != profileID {
			continue
		}
		if category != nil && m.Category != *category {
			continue
		}
		if !cur.Zero() && !cur.Before(m.CreatedAt, m.ID) {
			continue
		}
		cp := *m
		all = append(all, &cp)
	}

	sortRecentFirst(all, func(m *memory.Memory) (time.Time, string) { return m.CreatedAt, m.ID })

	next := ""
	if len(all) > limit {
		all = all[:limit]
		last := all[len(all)-1]
		next = storage.EncodeCursor(storage.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return all, next, nil
}

func (d *Driver) AllMemories(_ context.Context, profileID string) ([]*memory.Memory, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var all []*memory.Memory
	for _, m := range d.memories {
		if m.ProfileID == profileID {
			cp := *m
			all = append(all, &cp)
		}
	}

	sortRecentFirst(all, func(m *memory.Memory) (time.Time, string) { return m.CreatedAt, m.ID })

	return all, nil
}

func (d *Driver) UpdateMemory(_ context.Context, profileID, id string, patch storage.MemoryPatch) (*memory.Memory, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	m, ok := d.memories[id]
	if !ok || m.ProfileID != profileID {
		return nil, storage.NotFoundError{Kind: "memory", ID: id}
	}

	if patch.Content != nil {
		m.Content = *patch.Content
	}
	if patch.EmotionalNote != nil {
		m.EmotionalNote = patch.EmotionalNote
	}
	if patch.Category != nil {
		m.Category = *patch.Category
	}
	if patch.Importance != nil {
		m.Importance = *patch.Importance
	}
	if patch.PreferVerbatim != nil {
		m.PreferVerbatim = *patch.PreferVerbatim
	}
	if patch.Summary != nil {
		m.Summary = patch.Summary
	}
	if patch.SummaryTokens != nil {
		m.SummaryTokens = *patch.SummaryTokens
	}
	m.UpdatedAt = time.Now().UTC()

	cp := *m
	return &cp, nil
}

func (d *Driver) DeleteMemory(_ context.Context, profileID, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	m, ok := d.memories[id]
	if !ok || m.ProfileID != profileID {
		return storage.NotFoundError{Kind: "memory", ID: id}
	}

	delete(d.memories, id)
	return nil
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}

// sortRecentFirst orders records by creation time descending, breaking ties
// by ID descending so pagination is fully deterministic.
func sortRecentFirst[T any](items []T, key func(T) (time.Time, string)) {
	sort.Slice(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if ti.Equal(tj) {
			return idi > idj
		}
		return ti.After(tj)
	})
}
