package service

import (
	"context"
	"sort"
	"sync"

	"github.com/akvekariya/AIChatBot/internal/entity"
	"github.com/akvekariya/AIChatBot/internal/repository/contract"
	"github.com/akvekariya/AIChatBot/internal/repository/specification"
	"github.com/akvekariya/AIChatBot/internal/repository/unitofwork"
	"github.com/akvekariya/AIChatBot/pkg/events"

	"github.com/google/uuid"
)

// fakeStore is an in-memory stand-in for the database. lockMu emulates the
// session row lock: a unit of work that called FindOneForUpdate holds it
// until Commit or Rollback, which is exactly the serialization the real
// implementation gets from SELECT FOR UPDATE.
type fakeStore struct {
	lockMu sync.Mutex
	dataMu sync.RWMutex

	sessions map[uuid.UUID]entity.ChatSession
	messages map[uuid.UUID][]entity.ChatMessage
	users    map[uuid.UUID]entity.User
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: make(map[uuid.UUID]entity.ChatSession),
		messages: make(map[uuid.UUID][]entity.ChatMessage),
		users:    make(map[uuid.UUID]entity.User),
	}
}

type fakeFactory struct {
	store *fakeStore
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{store: newFakeStore()}
}

func (f *fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUow{store: f.store}
}

type fakeUow struct {
	store  *fakeStore
	inTx   bool
	locked bool
}

func (u *fakeUow) Begin(ctx context.Context) error {
	u.inTx = true
	return nil
}

func (u *fakeUow) Commit() error {
	u.release()
	return nil
}

func (u *fakeUow) Rollback() error {
	u.release()
	return nil
}

func (u *fakeUow) release() {
	u.inTx = false
	if u.locked {
		u.locked = false
		u.store.lockMu.Unlock()
	}
}

func (u *fakeUow) UserRepository() contract.UserRepository {
	return &fakeUserRepo{store: u.store}
}

func (u *fakeUow) ChatSessionRepository() contract.ChatSessionRepository {
	return &fakeSessionRepo{uow: u}
}

func (u *fakeUow) ChatMessageRepository() contract.ChatMessageRepository {
	return &fakeMessageRepo{store: u.store}
}

type fakeSessionRepo struct {
	uow *fakeUow
}

func matchSession(s entity.ChatSession, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch v := spec.(type) {
		case specification.ByID:
			if s.Id != v.ID {
				return false
			}
		case specification.OwnedBy:
			if s.OwnerId != v.OwnerID {
				return false
			}
		case specification.ActiveOnly:
			if !s.IsActive {
				return false
			}
		}
	}
	return true
}

func (r *fakeSessionRepo) Create(ctx context.Context, session *entity.ChatSession) error {
	r.uow.store.dataMu.Lock()
	defer r.uow.store.dataMu.Unlock()
	r.uow.store.sessions[session.Id] = *session
	return nil
}

func (r *fakeSessionRepo) Update(ctx context.Context, session *entity.ChatSession) error {
	r.uow.store.dataMu.Lock()
	defer r.uow.store.dataMu.Unlock()
	r.uow.store.sessions[session.Id] = *session
	return nil
}

func (r *fakeSessionRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	r.uow.store.dataMu.RLock()
	defer r.uow.store.dataMu.RUnlock()
	for _, s := range r.uow.store.sessions {
		if matchSession(s, specs) {
			found := s
			return &found, nil
		}
	}
	return nil, nil
}

func (r *fakeSessionRepo) FindOneForUpdate(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	if !r.uow.locked {
		r.uow.store.lockMu.Lock()
		r.uow.locked = true
	}
	return r.FindOne(ctx, specs...)
}

func (r *fakeSessionRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error) {
	r.uow.store.dataMu.RLock()
	defer r.uow.store.dataMu.RUnlock()

	var out []*entity.ChatSession
	for _, s := range r.uow.store.sessions {
		if matchSession(s, specs) {
			found := s
			out = append(out, &found)
		}
	}

	for _, spec := range specs {
		if order, ok := spec.(specification.OrderBy); ok && order.Field == "last_message_at" {
			sort.Slice(out, func(i, j int) bool {
				ti, tj := out[i].LastMessageAt, out[j].LastMessageAt
				if ti == nil || tj == nil {
					return tj == nil
				}
				if order.Desc {
					return ti.After(*tj)
				}
				return ti.Before(*tj)
			})
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, err := r.FindAll(ctx, specs...)
	return int64(len(all)), err
}

type fakeMessageRepo struct {
	store *fakeStore
}

func (r *fakeMessageRepo) Create(ctx context.Context, message *entity.ChatMessage) error {
	r.store.dataMu.Lock()
	defer r.store.dataMu.Unlock()
	r.store.messages[message.ChatSessionId] = append(r.store.messages[message.ChatSessionId], *message)
	return nil
}

func (r *fakeMessageRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	r.store.dataMu.RLock()
	defer r.store.dataMu.RUnlock()

	var chatID uuid.UUID
	limit := 0
	desc := false
	for _, spec := range specs {
		switch v := spec.(type) {
		case specification.ByChatSessionID:
			chatID = v.ChatSessionID
		case specification.Limit:
			limit = v.N
		case specification.OrderBy:
			desc = v.Desc
		}
	}

	stored := r.store.messages[chatID]
	out := make([]*entity.ChatMessage, len(stored))
	for i := range stored {
		m := stored[i]
		out[i] = &m
	}
	sort.Slice(out, func(i, j int) bool {
		if desc {
			return out[i].Position > out[j].Position
		}
		return out[i].Position < out[j].Position
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeMessageRepo) CountBySender(ctx context.Context, specs ...specification.Specification) (map[string]int64, error) {
	var chatID uuid.UUID
	for _, spec := range specs {
		if v, ok := spec.(specification.ByChatSessionID); ok {
			chatID = v.ChatSessionID
		}
	}

	r.store.dataMu.RLock()
	defer r.store.dataMu.RUnlock()
	counts := make(map[string]int64)
	for _, m := range r.store.messages[chatID] {
		counts[m.Sender]++
	}
	return counts, nil
}

type fakeUserRepo struct {
	store *fakeStore
}

func (r *fakeUserRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	r.store.dataMu.RLock()
	defer r.store.dataMu.RUnlock()
	for _, u := range r.store.users {
		match := true
		for _, spec := range specs {
			if v, ok := spec.(specification.ByID); ok && u.Id != v.ID {
				match = false
			}
		}
		if match {
			found := u
			return &found, nil
		}
	}
	return nil, nil
}

// recordingPublisher captures operational events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type nopLogger struct{}

func (nopLogger) Debug(service, message string, fields map[string]interface{}) {}
func (nopLogger) Info(service, message string, fields map[string]interface{})  {}
func (nopLogger) Warn(service, message string, fields map[string]interface{})  {}
func (nopLogger) Error(service, message string, fields map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }
