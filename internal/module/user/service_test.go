package user

import (
	"context"
	"testing"

	"github.com/simp-lee/saleads/internal/domain"
)

// --- mock repository ---

type mockUserRepo struct {
	users  map[uint]*domain.User
	nextID uint
}

func newMockRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uint]*domain.User), nextID: 1}
}

func (m *mockUserRepo) Create(_ context.Context, user *domain.User) error {
	for _, u := range m.users {
		if u.Username == user.Username || u.Email == user.Email {
			return domain.ErrAlreadyExists
		}
	}
	user.ID = m.nextID
	m.nextID++
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uint) (*domain.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

// --- tests ---

func TestGetUser(t *testing.T) {
	repo := newMockRepo()
	svc := NewUserService(repo)

	seeded := &domain.User{Username: "bob", Email: "bob@example.com"}
	if err := repo.Create(context.Background(), seeded); err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := svc.GetUser(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Username != "bob" {
		t.Errorf("username = %q; want bob", got.Username)
	}

	if _, err := svc.GetUser(context.Background(), 42); !domain.IsNotFound(err) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetByUsername(t *testing.T) {
	repo := newMockRepo()
	svc := NewUserService(repo)
	if err := repo.Create(context.Background(), &domain.User{Username: "bob", Email: "bob@example.com"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"exact", "bob", false},
		{"surrounding spaces", "  bob ", false},
		{"blank", "   ", true},
		{"unknown", "carol", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.GetByUsername(context.Background(), tt.username)
			if tt.wantErr {
				if !domain.IsNotFound(err) {
					t.Errorf("expected ErrNotFound, got %v", err)
				}
				return
			}
			if err != nil || got.Username != "bob" {
				t.Errorf("GetByUsername = %+v, %v", got, err)
			}
		})
	}
}
