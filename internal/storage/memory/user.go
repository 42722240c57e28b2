package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/georgemunganga/furnish-backend/internal/modules/user"
)

type userRepo struct{ s *Store }

func (r userRepo) CreateUser(_ context.Context, u *user.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email := strings.ToLower(u.Email)
	for _, ex := range r.s.users {
		if ex.Email == email {
			return user.ErrEmailTaken
		}
	}
	if _, exists := r.s.users[u.ID]; exists {
		return fmt.Errorf("insert user: id %s already exists", u.ID)
	}
	cp := *u
	cp.Email = email
	r.s.users[u.ID] = &cp
	return nil
}

func (r userRepo) GetUserByEmail(_ context.Context, email string) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email = strings.ToLower(email)
	for _, u := range r.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrNotFound
}

func (r userRepo) GetUserByID(_ context.Context, id string) (*user.User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, user.ErrNotFound
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[uid]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *u
	return &cp, nil
}
