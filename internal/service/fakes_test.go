package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"school-chat-be/internal/entity"
	"school-chat-be/internal/repository/contract"
	"school-chat-be/internal/repository/specification"
	"school-chat-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// In-memory repositories that interpret the same specifications the gorm
// implementations do, so service tests run without a database.

type fakeSessionRepo struct {
	sessions map[uuid.UUID]*entity.ChatSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[uuid.UUID]*entity.ChatSession)}
}

func (r *fakeSessionRepo) Create(_ context.Context, s *entity.ChatSession) error {
	if s.Id == uuid.Nil {
		s.Id = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	copied := *s
	r.sessions[s.Id] = &copied
	return nil
}

func (r *fakeSessionRepo) Update(_ context.Context, s *entity.ChatSession) error {
	if _, ok := r.sessions[s.Id]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *s
	r.sessions[s.Id] = &copied
	return nil
}

func (r *fakeSessionRepo) matches(s *entity.ChatSession, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch sp := spec.(type) {
		case specification.ByID:
			if s.Id != sp.ID {
				return false
			}
		case specification.ByUserID:
			if s.UserId != sp.UserID {
				return false
			}
		case specification.ByStatus:
			if s.Status != sp.Status {
				return false
			}
		}
	}
	return true
}

func (r *fakeSessionRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (r *fakeSessionRepo) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error) {
	var out []*entity.ChatSession
	for _, s := range r.sessions {
		if r.matches(s, specs) {
			copied := *s
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeSessionRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, err := r.FindAll(ctx, specs...)
	return int64(len(all)), err
}

func (r *fakeSessionRepo) RecordMessage(_ context.Context, id uuid.UUID, lastMessage string, at time.Time) error {
	s, ok := r.sessions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.LastMessage = lastMessage
	s.LastMessageTime = &at
	s.UnreadCount++
	now := time.Now()
	s.UpdatedAt = &now
	return nil
}

func (r *fakeSessionRepo) ResetUnread(_ context.Context, id uuid.UUID) error {
	s, ok := r.sessions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.UnreadCount = 0
	return nil
}

func (r *fakeSessionRepo) SumUnreadByUser(_ context.Context, userId uuid.UUID) (int64, error) {
	var total int64
	for _, s := range r.sessions {
		if s.UserId == userId {
			total += int64(s.UnreadCount)
		}
	}
	return total, nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []*entity.ChatMessage
	seq      int
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{}
}

// get is a test-side accessor safe against the consumer goroutine.
func (r *fakeMessageRepo) get(id uuid.UUID) *entity.ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.Id == id {
			copied := *m
			return &copied
		}
	}
	return nil
}

func (r *fakeMessageRepo) Create(_ context.Context, m *entity.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.Id == uuid.Nil {
		m.Id = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		// Monotonic timestamps so ordering assertions are deterministic.
		r.seq++
		m.CreatedAt = time.Unix(1_700_000_000, 0).Add(time.Duration(r.seq) * time.Second)
	}
	copied := *m
	r.messages = append(r.messages, &copied)
	return nil
}

func (r *fakeMessageRepo) Update(_ context.Context, m *entity.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.messages {
		if existing.Id == m.Id {
			copied := *m
			r.messages[i] = &copied
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeMessageRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatMessage, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (r *fakeMessageRepo) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	limit := 0
	recentFirst := false

	r.mu.Lock()
	var out []*entity.ChatMessage
	for _, m := range r.messages {
		if matchesMessage(m, specs) {
			copied := *m
			out = append(out, &copied)
		}
	}
	r.mu.Unlock()

	for _, spec := range specs {
		switch sp := spec.(type) {
		case specification.Limit:
			limit = sp.Limit
		case specification.RecentFirst:
			recentFirst = true
		}
	}

	if recentFirst {
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matchesMessage(m *entity.ChatMessage, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch sp := spec.(type) {
		case specification.ByID:
			if m.Id != sp.ID {
				return false
			}
		case specification.ByChatID:
			if m.ChatId != sp.ChatID {
				return false
			}
		case specification.NotDeleted:
			if m.IsDeleted {
				return false
			}
		case specification.CreatedBefore:
			if !m.CreatedAt.Before(sp.Before) {
				return false
			}
		}
	}
	return true
}

func (r *fakeMessageRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, err := r.FindAll(ctx, specs...)
	return int64(len(all)), err
}

func (r *fakeMessageRepo) MarkRead(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.Id == id {
			m.IsRead = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeMessageRepo) MarkAllReadExceptSender(_ context.Context, chatId, readerId uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ChatId == chatId && m.SenderId != readerId {
			m.IsRead = true
		}
	}
	return nil
}

func (r *fakeMessageRepo) UpdateMetadata(_ context.Context, id uuid.UUID, metadata *entity.MessageMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.Id == id {
			m.Metadata = metadata
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type fakeUnitOfWork struct {
	sessions *fakeSessionRepo
	messages *fakeMessageRepo
}

func (u *fakeUnitOfWork) Begin(context.Context) error { return nil }
func (u *fakeUnitOfWork) Commit() error               { return nil }
func (u *fakeUnitOfWork) Rollback() error             { return nil }

func (u *fakeUnitOfWork) ChatSessionRepository() contract.ChatSessionRepository { return u.sessions }
func (u *fakeUnitOfWork) ChatMessageRepository() contract.ChatMessageRepository { return u.messages }

type fakeFactory struct {
	uow *fakeUnitOfWork
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{uow: &fakeUnitOfWork{
		sessions: newFakeSessionRepo(),
		messages: newFakeMessageRepo(),
	}}
}

func (f *fakeFactory) NewUnitOfWork(context.Context) unitofwork.UnitOfWork { return f.uow }
