package handler

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/secure-notes/internal/model"
	"github.com/iliyamo/secure-notes/internal/queue"
	"github.com/iliyamo/secure-notes/internal/repository"
)

func farFuture() time.Time { return time.Now().UTC().Add(24 * time.Hour) }

// In-memory store implementations mirroring the MySQL repositories'
// contracts, including sentinel errors and the one-winner guarantees of
// Rotate and Consume.

type fakeUserStore struct {
	mu     sync.Mutex
	nextID uint64
	users  map[uint64]model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{nextID: 1, users: map[uint64]model.User{}}
}

func (s *fakeUserStore) Create(_ context.Context, email, passwordHash string, role model.Role) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(email)
	for _, u := range s.users {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	id := s.nextID
	s.nextID++
	now := time.Now().UTC()
	s.users[id] = model.User{
		ID: id, Email: email, PasswordHash: passwordHash,
		Role: role, Status: model.StatusPendingVerification,
		CreatedAt: now, UpdatedAt: now,
	}
	return id, nil
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(email)
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (s *fakeUserStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (s *fakeUserStore) List(_ context.Context, afterID uint64, limit int) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.User
	for _, u := range s.users {
		if u.ID > afterID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeUserStore) UpdateStatus(_ context.Context, id uint64, status model.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Status = status
	if status == model.StatusVerified && u.EmailVerifiedAt == nil {
		now := time.Now().UTC()
		u.EmailVerifiedAt = &now
	}
	s.users[id] = u
	return nil
}

func (s *fakeUserStore) UpdateRole(_ context.Context, id uint64, role model.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Role = role
	s.users[id] = u
	return nil
}

// verify flips a pending user to VERIFIED, mirroring Consume's side table
// update in the MySQL implementation.
func (s *fakeUserStore) verify(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || u.Status != model.StatusPendingVerification {
		return
	}
	now := time.Now().UTC()
	u.Status = model.StatusVerified
	u.EmailVerifiedAt = &now
	s.users[id] = u
}

type fakeSessionStore struct {
	mu       sync.Mutex
	nextID   uint64
	sessions map[string]*model.RefreshSession // keyed by token hash
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{nextID: 1, sessions: map[string]*model.RefreshSession{}}
}

func (s *fakeSessionStore) Create(_ context.Context, userID uint64, tokenHash string, exp time.Time) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.sessions[tokenHash] = &model.RefreshSession{
		ID: id, UserID: userID, TokenHash: tokenHash,
		ExpiresAt: exp, CreatedAt: time.Now().UTC(),
	}
	return id, nil
}

func (s *fakeSessionStore) GetByHash(_ context.Context, tokenHash string) (model.RefreshSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[tokenHash]
	if !ok {
		return model.RefreshSession{}, repository.ErrSessionNotFound
	}
	return *sess, nil
}

func (s *fakeSessionStore) Rotate(_ context.Context, oldHash string, userID uint64, newHash string, newExp time.Time) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.sessions[oldHash]
	if !ok {
		return 0, repository.ErrSessionNotFound
	}
	now := time.Now().UTC()
	if old.RevokedAt != nil {
		return 0, repository.ErrSessionRevoked
	}
	if !now.Before(old.ExpiresAt) {
		return 0, repository.ErrSessionExpired
	}
	old.RevokedAt = &now
	id := s.nextID
	s.nextID++
	s.sessions[newHash] = &model.RefreshSession{
		ID: id, UserID: userID, TokenHash: newHash,
		ExpiresAt: newExp, CreatedAt: now,
	}
	return id, nil
}

func (s *fakeSessionStore) Touch(_ context.Context, tokenHash string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[tokenHash]
	if !ok {
		return 0, repository.ErrSessionNotFound
	}
	now := time.Now().UTC()
	if sess.RevokedAt != nil {
		return 0, repository.ErrSessionRevoked
	}
	if !now.Before(sess.ExpiresAt) {
		return 0, repository.ErrSessionExpired
	}
	sess.LastUsedAt = &now
	return sess.UserID, nil
}

func (s *fakeSessionStore) RevokeByHash(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[tokenHash]; ok && sess.RevokedAt == nil {
		now := time.Now().UTC()
		sess.RevokedAt = &now
	}
	return nil
}

func (s *fakeSessionStore) RevokeAllForUser(_ context.Context, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.RevokedAt == nil {
			sess.RevokedAt = &now
		}
	}
	return nil
}

func (s *fakeSessionStore) activeCount(userID uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	now := time.Now().UTC()
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.Active(now) {
			n++
		}
	}
	return n
}

type fakeVerification struct {
	userID uint64
	exp    time.Time
	used   bool
}

type fakeVerificationStore struct {
	mu     sync.Mutex
	tokens map[string]*fakeVerification // keyed by token hash
	users  *fakeUserStore               // status flip on consume
}

func newFakeVerificationStore(users *fakeUserStore) *fakeVerificationStore {
	return &fakeVerificationStore{tokens: map[string]*fakeVerification{}, users: users}
}

func (s *fakeVerificationStore) Issue(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Supersede prior unused tokens for the same user.
	for _, t := range s.tokens {
		if t.userID == userID && !t.used {
			t.exp = time.Now().UTC().Add(-time.Second)
		}
	}
	s.tokens[tokenHash] = &fakeVerification{userID: userID, exp: exp}
	return nil
}

func (s *fakeVerificationStore) Consume(_ context.Context, tokenHash string) (uint64, error) {
	s.mu.Lock()
	t, ok := s.tokens[tokenHash]
	if !ok {
		s.mu.Unlock()
		return 0, repository.ErrVerificationNotFound
	}
	if t.used {
		s.mu.Unlock()
		return 0, repository.ErrVerificationUsed
	}
	if !time.Now().UTC().Before(t.exp) {
		s.mu.Unlock()
		return 0, repository.ErrVerificationExpired
	}
	t.used = true
	uid := t.userID
	s.mu.Unlock()
	s.users.verify(uid)
	return uid, nil
}

type fakeNoteStore struct {
	mu     sync.Mutex
	nextID uint64
	notes  map[uint64]model.Note
}

func newFakeNoteStore() *fakeNoteStore {
	return &fakeNoteStore{nextID: 1, notes: map[uint64]model.Note{}}
}

func (s *fakeNoteStore) Create(_ context.Context, userID uint64, title, content string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	now := time.Now().UTC()
	s.notes[id] = model.Note{
		ID: id, CreatedBy: userID, Title: title, Content: content,
		CreatedAt: now, UpdatedAt: now,
	}
	return id, nil
}

func (s *fakeNoteStore) GetByID(_ context.Context, id uint64) (model.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id]
	if !ok || n.DeletedAt != nil {
		return model.Note{}, repository.ErrNoteNotFound
	}
	return n, nil
}

func (s *fakeNoteStore) Update(_ context.Context, id uint64, title, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id]
	if !ok || n.DeletedAt != nil {
		return repository.ErrNoteNotFound
	}
	n.Title, n.Content, n.UpdatedAt = title, content, time.Now().UTC()
	s.notes[id] = n
	return nil
}

func (s *fakeNoteStore) SoftDelete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id]
	if !ok || n.DeletedAt != nil {
		return repository.ErrNoteNotFound
	}
	now := time.Now().UTC()
	n.DeletedAt = &now
	s.notes[id] = n
	return nil
}

func (s *fakeNoteStore) ListByOwner(_ context.Context, userID, afterID uint64, limit int) ([]model.Note, error) {
	return s.list(userID, afterID, limit), nil
}

func (s *fakeNoteStore) ListAll(_ context.Context, userID, afterID uint64, limit int) ([]model.Note, error) {
	return s.list(userID, afterID, limit), nil
}

func (s *fakeNoteStore) list(userID, afterID uint64, limit int) []model.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Note
	for _, n := range s.notes {
		if n.DeletedAt != nil || n.ID <= afterID {
			continue
		}
		if userID != 0 && n.CreatedBy != userID {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

type fakeAuditStore struct {
	mu      sync.Mutex
	nextID  uint64
	entries []model.AuditEntry
}

func newFakeAuditStore() *fakeAuditStore { return &fakeAuditStore{nextID: 1} }

func (s *fakeAuditStore) Insert(_ context.Context, e model.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.nextID
	s.nextID++
	e.CreatedAt = time.Now().UTC()
	s.entries = append(s.entries, e)
	return nil
}

func (s *fakeAuditStore) List(_ context.Context, afterID uint64, limit int) ([]model.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.AuditEntry
	for _, e := range s.entries {
		if e.ID > afterID {
			out = append(out, e)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeAuditStore) byAction(action string) []model.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.AuditEntry
	for _, e := range s.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

type fakePublisher struct {
	mu     sync.Mutex
	events []queue.VerificationRequestedEvent
	err    error
}

func (p *fakePublisher) PublishVerificationRequested(_ context.Context, ev queue.VerificationRequestedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePublisher) last() (queue.VerificationRequestedEvent, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return queue.VerificationRequestedEvent{}, false
	}
	return p.events[len(p.events)-1], true
}
