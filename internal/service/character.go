package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aeonisk/arbiter/internal/domain"
	"github.com/aeonisk/arbiter/internal/pagination"
)

// CharacterStore defines the repository interface for the character
// registry.
type CharacterStore interface {
	Create(ctx context.Context, c *domain.Character) error
	GetByID(ctx context.Context, id string) (*domain.Character, error)
	GetByName(ctx context.Context, name string) (*domain.Character, error)
	ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*pagination.PageResult[*domain.Character], error)
	Update(ctx context.Context, c *domain.Character) error
	Delete(ctx context.Context, id string) error
}

// CharacterService owns the character registry. Constructed explicitly and
// handed to its consumers; there is no package-level instance.
type CharacterService struct {
	store CharacterStore
}

func NewCharacterService(store CharacterStore) *CharacterService {
	return &CharacterService{store: store}
}

// CreateCharacterInput carries the fields a caller may set at creation.
type CreateCharacterInput struct {
	Name       string         `json:"name"`
	Concept    string         `json:"concept,omitempty"`
	TrueWill   string         `json:"true_will,omitempty"`
	Attributes map[string]int `json:"attributes,omitempty"`
	Skills     map[string]int `json:"skills,omitempty"`
}

func (s *CharacterService) Create(ctx context.Context, input CreateCharacterInput) (*domain.Character, error) {
	now := time.Now().UTC()
	c := &domain.Character{
		ID:         uuid.NewString(),
		Name:       input.Name,
		Concept:    input.Concept,
		TrueWill:   input.TrueWill,
		Attributes: input.Attributes,
		Skills:     input.Skills,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if c.Attributes == nil {
		c.Attributes = map[string]int{}
	}
	if c.Skills == nil {
		c.Skills = map[string]int{}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CharacterService) GetByID(ctx context.Context, id string) (*domain.Character, error) {
	return s.store.GetByID(ctx, id)
}

// GetCharacterByName satisfies game.CharacterStore.
func (s *CharacterService) GetCharacterByName(ctx context.Context, name string) (*domain.Character, error) {
	return s.store.GetByName(ctx, name)
}

// UpdateCharacter satisfies game.CharacterStore.
func (s *CharacterService) UpdateCharacter(ctx context.Context, c *domain.Character) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return s.store.Update(ctx, c)
}

func (s *CharacterService) List(ctx context.Context, cursor string, limit int) (*pagination.PageResult[*domain.Character], error) {
	decoded, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}
	return s.store.ListWithCursor(ctx, decoded, limit)
}

func (s *CharacterService) Update(ctx context.Context, c *domain.Character) error {
	return s.UpdateCharacter(ctx, c)
}

func (s *CharacterService) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}
