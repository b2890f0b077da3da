package users

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, email, passwordHash, timezone string) (*User, error) {
	now := time.Now()
	user := &User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		Timezone:     timezone,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByChatJID resolves an inbound chat address to a user. The resource part
// of the JID is stripped so full JIDs from presence-aware servers still match.
func (s *Service) GetByChatJID(ctx context.Context, jid string) (*User, error) {
	return s.repo.GetByChatJID(ctx, BareJID(jid))
}

func (s *Service) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.repo.ExistsByEmail(ctx, email)
}

func (s *Service) ListActiveWithTimezone(ctx context.Context) ([]*User, error) {
	return s.repo.ListActiveWithTimezone(ctx)
}

func (s *Service) UpdateProfile(ctx context.Context, user *User, req *UpdateProfileRequest) (*User, error) {
	if req.DisplayName != nil {
		user.DisplayName = *req.DisplayName
	}
	if req.Timezone != nil {
		user.Timezone = *req.Timezone
	}
	if req.PreferredModel != nil {
		user.PreferredModel = *req.PreferredModel
	}
	if req.ChatJID != nil {
		user.ChatJID = BareJID(*req.ChatJID)
	}
	user.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// BareJID strips the resource part from a JID.
func BareJID(jid string) string {
	for i := 0; i < len(jid); i++ {
		if jid[i] == '/' {
			return jid[:i]
		}
	}
	return jid
}
