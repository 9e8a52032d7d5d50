package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"fled-backend/internal/school/domain"
)

// MemoryStore is an in-process document store used for local development
// (STORE_DRIVER=memory) and tests. It mirrors the Firestore semantics the
// repositories rely on: missing documents read as nil, merges union arrays.
type MemoryStore struct {
	mu        sync.RWMutex
	students  map[string]domain.Student
	parents   map[string]domain.Parent
	users     map[string]domain.User
	devices   map[string]domain.Device // keyed by document path
	documents map[string]map[string]map[string]interface{}
	now       func() time.Time
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		students:  make(map[string]domain.Student),
		parents:   make(map[string]domain.Parent),
		users:     make(map[string]domain.User),
		devices:   make(map[string]domain.Device),
		documents: make(map[string]map[string]map[string]interface{}),
		now:       time.Now,
	}
}

func (s *MemoryStore) PutStudent(st domain.Student) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students[st.ID] = st
}

func (s *MemoryStore) PutParent(p domain.Parent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parents[p.ID] = p
}

func (s *MemoryStore) PutUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *MemoryStore) PutDevice(d domain.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.Path == "" {
		d.Path = domain.CollectionDevices + "/" + d.ID
	}
	s.devices[d.Path] = d
}

func (s *MemoryStore) PutDocument(collection, id string, data map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.documents[collection] == nil {
		s.documents[collection] = make(map[string]map[string]interface{})
	}
	s.documents[collection][id] = data
}

// Parent returns a copy of a stored parent.
func (s *MemoryStore) Parent(id string) (domain.Parent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.parents[id]
	return p, ok
}

// User returns a copy of a stored user.
func (s *MemoryStore) User(id string) (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok
}

// Devices returns every stored device ordered by path.
func (s *MemoryStore) Devices() []domain.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Device, 0, len(s.devices))
	for _, d := range s.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// --- students ---

type memoryStudentRepository struct{ store *MemoryStore }

// NewMemoryStudentRepository creates a StudentRepository over a MemoryStore
func NewMemoryStudentRepository(store *MemoryStore) StudentRepository {
	return &memoryStudentRepository{store: store}
}

func (r *memoryStudentRepository) FindByID(_ context.Context, id string) (*domain.Student, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	st, ok := r.store.students[id]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (r *memoryStudentRepository) FindBySection(_ context.Context, sectionID string) ([]*domain.Student, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []*domain.Student
	for _, st := range r.store.students {
		if st.SectionID == sectionID {
			st := st
			out = append(out, &st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- parents ---

type memoryParentRepository struct{ store *MemoryStore }

// NewMemoryParentRepository creates a ParentRepository over a MemoryStore
func NewMemoryParentRepository(store *MemoryStore) ParentRepository {
	return &memoryParentRepository{store: store}
}

func (r *memoryParentRepository) FindByID(_ context.Context, id string) (*domain.Parent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	p, ok := r.store.parents[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *memoryParentRepository) FindByIDs(_ context.Context, ids []string) ([]*domain.Parent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []*domain.Parent
	for _, id := range ids {
		if p, ok := r.store.parents[id]; ok {
			p := p
			out = append(out, &p)
		}
	}
	return out, nil
}

func (r *memoryParentRepository) FindByPhone(_ context.Context, phone string) ([]*domain.Parent, error) {
	return r.filter(func(p domain.Parent) bool { return p.Phone == phone }), nil
}

func (r *memoryParentRepository) FindAll(_ context.Context) ([]*domain.Parent, error) {
	return r.filter(func(domain.Parent) bool { return true }), nil
}

func (r *memoryParentRepository) filter(match func(domain.Parent) bool) []*domain.Parent {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []*domain.Parent
	for _, p := range r.store.parents {
		if match(p) {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memoryParentRepository) MergeCanonical(_ context.Context, parent *domain.Parent) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	cur := r.store.parents[parent.ID]
	cur.ID = parent.ID
	cur.Email = parent.Email
	if parent.Name != "" {
		cur.Name = parent.Name
	}
	if parent.Phone != "" {
		cur.Phone = parent.Phone
	}
	if parent.FCMToken != "" {
		cur.FCMToken = parent.FCMToken
	}
	cur.LinkedStudentIDs = unionStrings(cur.LinkedStudentIDs, parent.LinkedStudentIDs)
	cur.OwnerUIDs = unionStrings(cur.OwnerUIDs, parent.OwnerUIDs)
	cur.FCMTokens = unionRecords(cur.FCMTokens, parent.FCMTokens)
	cur.UpdatedAt = r.store.now()
	r.store.parents[parent.ID] = cur
	return nil
}

func (r *memoryParentRepository) Delete(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.parents, id)
	return nil
}

func (r *memoryParentRepository) ClearLegacyToken(_ context.Context, token string) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cleared := 0
	for id, p := range r.store.parents {
		if p.FCMToken == token {
			p.FCMToken = ""
			r.store.parents[id] = p
			cleared++
		}
	}
	return cleared, nil
}

// --- users ---

type memoryUserRepository struct{ store *MemoryStore }

// NewMemoryUserRepository creates a UserRepository over a MemoryStore
func NewMemoryUserRepository(store *MemoryStore) UserRepository {
	return &memoryUserRepository{store: store}
}

func (r *memoryUserRepository) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	u, ok := r.store.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *memoryUserRepository) AddToken(_ context.Context, uid string, record domain.TokenRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	u := r.store.users[uid]
	u.ID = uid
	u.FCMTokens = unionRecords(u.FCMTokens, []domain.TokenRecord{record})
	r.store.users[uid] = u
	return nil
}

func (r *memoryUserRepository) RemoveToken(_ context.Context, uid, token string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	u, ok := r.store.users[uid]
	if !ok {
		return false, nil
	}
	kept := u.FCMTokens[:0:0]
	for _, rec := range u.FCMTokens {
		if rec.Token != token {
			kept = append(kept, rec)
		}
	}
	if len(kept) == len(u.FCMTokens) {
		return false, nil
	}
	u.FCMTokens = kept
	r.store.users[uid] = u
	return true, nil
}

func (r *memoryUserRepository) ClearLegacyToken(_ context.Context, token string) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cleared := 0
	for id, u := range r.store.users {
		if u.FCMToken == token {
			u.FCMToken = ""
			r.store.users[id] = u
			cleared++
		}
	}
	return cleared, nil
}

// --- devices ---

type memoryDeviceRepository struct{ store *MemoryStore }

// NewMemoryDeviceRepository creates a DeviceRepository over a MemoryStore
func NewMemoryDeviceRepository(store *MemoryStore) DeviceRepository {
	return &memoryDeviceRepository{store: store}
}

func (r *memoryDeviceRepository) DeleteByToken(_ context.Context, token string) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	deleted := 0
	for path, d := range r.store.devices {
		if d.Token == token {
			delete(r.store.devices, path)
			deleted++
		}
	}
	return deleted, nil
}

// --- raw documents ---

type memoryDocumentRepository struct{ store *MemoryStore }

// NewMemoryDocumentRepository creates a DocumentRepository over a MemoryStore
func NewMemoryDocumentRepository(store *MemoryStore) DocumentRepository {
	return &memoryDocumentRepository{store: store}
}

func (r *memoryDocumentRepository) FindDocument(_ context.Context, collection, id string) (*domain.Document, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	data, ok := r.store.documents[collection][id]
	if !ok {
		return nil, nil
	}
	cp := make(map[string]interface{}, len(data))
	for k, v := range data {
		cp[k] = v
	}
	return &domain.Document{Collection: collection, ID: id, Data: cp}, nil
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, s := range append(append([]string(nil), a...), b...) {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func unionRecords(a, b []domain.TokenRecord) []domain.TokenRecord {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []domain.TokenRecord
	for _, r := range append(append([]domain.TokenRecord(nil), a...), b...) {
		if _, ok := seen[r.Token]; ok {
			continue
		}
		seen[r.Token] = struct{}{}
		out = append(out, r)
	}
	return out
}
