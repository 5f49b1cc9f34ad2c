package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mttsite/internal/auth"
	"mttsite/internal/docstore"
	"mttsite/internal/dto"
	"mttsite/internal/model"
)

var errNoTokens = errors.New("token issuer is not configured")

func (s *service) findUser(ctx context.Context, email string) (*model.User, error) {
	docs, err := s.users.Query(ctx, model.UsersCollection, docstore.Query{
		Equals: map[string]any{"email": email},
	})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	u, err := decode[model.User](docs[0])
	if err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &u, nil
}

func (s *service) Register(ctx context.Context, req dto.SignUpRequest) (model.User, error) {
	if err := validate(ctx, req); err != nil {
		return model.User{}, err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := s.findUser(ctx, email)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to look up user")
		return model.User{}, err
	}
	if existing != nil {
		return model.User{}, ErrEmailTaken
	}

	hash, salt, err := auth.HashPassword(req.Password)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	user := model.User{
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
		Salt:         salt,
		CreatedAt:    s.timestamp(),
	}
	if err := s.createUser(ctx, &user); err != nil {
		return model.User{}, err
	}
	s.log.Info().Str("user_id", user.ID).Msg("user registered")

	user.PasswordHash, user.Salt = "", ""
	return user, nil
}

func (s *service) createUser(ctx context.Context, user *model.User) error {
	doc, err := docstore.FromRecord(user)
	if err != nil {
		return err
	}
	id, err := s.users.Create(ctx, model.UsersCollection, doc)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create user")
		return err
	}
	user.ID = id
	return nil
}

// SeedAdmins creates an admin account for every configured admin email that
// has none yet. Accounts that already exist without the admin flag stay as
// they are, since anyone could have signed up with that address.
func (s *service) SeedAdmins(ctx context.Context, password string) (int, error) {
	created := 0
	for _, email := range s.admins {
		existing, err := s.findUser(ctx, email)
		if err != nil {
			return created, fmt.Errorf("look up admin %s: %w", email, err)
		}
		if existing != nil {
			if !existing.IsAdmin {
				s.log.Warn().Str("email", email).Msg("admin email belongs to a regular account, not promoting")
			}
			continue
		}
		if password == "" {
			s.log.Warn().Str("email", email).Msg("no admin password configured, admin account not created")
			continue
		}
		hash, salt, err := auth.HashPassword(password)
		if err != nil {
			return created, fmt.Errorf("hash password: %w", err)
		}
		admin := model.User{
			Email:        email,
			Name:         "Administrator",
			PasswordHash: hash,
			Salt:         salt,
			IsAdmin:      true,
			CreatedAt:    s.timestamp(),
		}
		if err := s.createUser(ctx, &admin); err != nil {
			return created, err
		}
		s.log.Info().Str("user_id", admin.ID).Str("email", email).Msg("admin account created")
		created++
	}
	return created, nil
}

func (s *service) Login(ctx context.Context, req dto.LoginRequest) (dto.TokenResponse, error) {
	if err := validate(ctx, req); err != nil {
		return dto.TokenResponse{}, err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.findUser(ctx, email)
	if err != nil {
		return dto.TokenResponse{}, err
	}
	if user == nil {
		return dto.TokenResponse{}, ErrInvalidCredentials
	}
	ok, err := auth.VerifyPassword(req.Password, user.Salt, user.PasswordHash)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("stored credentials are corrupt")
		return dto.TokenResponse{}, ErrInvalidCredentials
	}
	if !ok {
		return dto.TokenResponse{}, ErrInvalidCredentials
	}

	if s.tokens == nil {
		return dto.TokenResponse{}, errNoTokens
	}
	token, exp, err := s.tokens.Issue(user.ID, user.Email, user.IsAdmin)
	if err != nil {
		return dto.TokenResponse{}, err
	}
	return dto.TokenResponse{Token: token, ExpiresAt: exp.UTC().Format(time.RFC3339), IsAdmin: user.IsAdmin}, nil
}

func (s *service) VerifyToken(raw string) (*auth.Claims, error) {
	if s.tokens == nil {
		return nil, errNoTokens
	}
	return s.tokens.Verify(raw)
}
