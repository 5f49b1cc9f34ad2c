package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"mttsite/internal/auth"
	"mttsite/internal/docstore"
	"mttsite/internal/dto"
	"mttsite/internal/imageupload"
	"mttsite/internal/model"
	"mttsite/internal/resilient"
	"mttsite/pkg/validator"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("record not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrRegistrationClosed = errors.New("registration is closed for past events")
)

type EventService interface {
	CreateEvent(ctx context.Context, req dto.EventRequest) (model.Event, resilient.WriteResult, error)
	UpdateEvent(ctx context.Context, id string, req dto.EventRequest) (resilient.WriteResult, error)
	DeleteEvent(ctx context.Context, id string) (resilient.WriteResult, error)
	// GetEvent returns nil when the event does not exist.
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	ListEvents(ctx context.Context, f dto.EventFilter) ([]model.Event, error)
}

type RegistrationService interface {
	CreateRegistration(ctx context.Context, eventID string, req dto.RegistrationRequest) (model.Registration, resilient.WriteResult, error)
	UpdateRegistration(ctx context.Context, id string, upd dto.RegistrationUpdate) (resilient.WriteResult, error)
	DeleteRegistration(ctx context.Context, id string) (resilient.WriteResult, error)
	GetRegistration(ctx context.Context, id string) (*model.Registration, error)
	ListRegistrations(ctx context.Context, f dto.RegistrationFilter) ([]model.Registration, error)
	ExportRegistrationsCSV(ctx context.Context, w io.Writer, f dto.RegistrationFilter) error
}

type BlogService interface {
	CreateBlog(ctx context.Context, req dto.BlogRequest) (model.Blog, resilient.WriteResult, error)
	UpdateBlog(ctx context.Context, id string, req dto.BlogRequest) (resilient.WriteResult, error)
	DeleteBlog(ctx context.Context, id string) (resilient.WriteResult, error)
	GetBlog(ctx context.Context, id string) (*model.Blog, error)
	GetBlogBySlug(ctx context.Context, slug string) (*model.Blog, error)
	ListBlogs(ctx context.Context, publishedOnly bool, f dto.BlogFilter) ([]model.Blog, error)
}

type UserService interface {
	Register(ctx context.Context, req dto.SignUpRequest) (model.User, error)
	Login(ctx context.Context, req dto.LoginRequest) (dto.TokenResponse, error)
	VerifyToken(raw string) (*auth.Claims, error)
	SeedAdmins(ctx context.Context, password string) (int, error)
}

type ImageService interface {
	UploadImage(ctx context.Context, filename string, data []byte) (string, error)
}

type Service interface {
	EventService
	RegistrationService
	BlogService
	UserService
	ImageService
}

// Notifier receives registration changes. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, msg dto.RegistrationMessage) error
}

type Deps struct {
	Events        *resilient.Collection
	Registrations *resilient.Collection
	Blogs         *resilient.Collection
	// Users bypass the local queue: credentials are never stored offline.
	Users       docstore.Store
	Tokens      *auth.Tokens
	Uploader    imageupload.Uploader
	Notifier    Notifier
	// AdminEmails are seeded as admin accounts by SeedAdmins. Sign-up never grants admin.
	AdminEmails []string
	Log         *zerolog.Logger
	Now         func() time.Time
}

type service struct {
	events        *resilient.Collection
	registrations *resilient.Collection
	blogs         *resilient.Collection
	users         docstore.Store
	tokens        *auth.Tokens
	uploader      imageupload.Uploader
	notifier      Notifier
	admins        []string
	log           *zerolog.Logger
	now           func() time.Time
}

func NewService(d Deps) Service {
	s := &service{
		events:        d.Events,
		registrations: d.Registrations,
		blogs:         d.Blogs,
		users:         d.Users,
		tokens:        d.Tokens,
		uploader:      d.Uploader,
		notifier:      d.Notifier,
		log:           d.Log,
		now:           d.Now,
	}
	for _, e := range d.AdminEmails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			s.admins = append(s.admins, e)
		}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		nop := zerolog.Nop()
		s.log = &nop
	}
	if s.uploader == nil {
		s.uploader = imageupload.Unconfigured{}
	}
	return s
}

// Searchable fields per collection.
var (
	EventSearchFields        = []string{"title", "description", "location"}
	RegistrationSearchFields = []string{"name", "email", "college"}
	BlogSearchFields         = []string{"title", "excerpt", "author"}
)

func validate(ctx context.Context, req any) error {
	if err := validator.Validate(ctx, req); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

func (s *service) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// notFound maps a store-level miss to the service sentinel.
func notFound(err error) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

func decode[T any](doc docstore.Document) (T, error) {
	var out T
	if err := doc.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

func decodeAll[T any](docs []docstore.Document, log *zerolog.Logger) []T {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		rec, err := decode[T](d)
		if err != nil {
			log.Warn().Err(err).Str("id", d.ID()).Msg("skipping malformed record")
			continue
		}
		out = append(out, rec)
	}
	return out
}

func equalsFilter(pairs ...string) map[string]any {
	eq := map[string]any{}
	for i := 0; i+1 < len(pairs); i += 2 {
		v := strings.TrimSpace(pairs[i+1])
		if v == "" || v == "all" {
			continue
		}
		eq[pairs[i]] = v
	}
	return eq
}
