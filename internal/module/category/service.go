package category

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/simp-lee/saleads/internal/domain"
)

const maxNameLength = 200

// Service loads category trees and creates categories.
type Service struct {
	repo   domain.CategoryRepository
	logger *slog.Logger
}

// NewService creates a category Service. A nil logger uses slog.Default().
func NewService(repo domain.CategoryRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// LoadCache reads every category in one query and builds a fresh Cache.
func (s *Service) LoadCache(ctx context.Context) (*Cache, error) {
	records, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	cache, err := Build(records)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "inconsistent category tree", err)
	}
	return cache, nil
}

// Load returns a detached node for the category with the given id, linked to
// detached nodes for all of its ancestors. Its children are read live.
func (s *Service) Load(ctx context.Context, id uint) (*Node, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	chain := []domain.Category{*rec}
	seen := map[uint]bool{rec.ID: true}
	for pid := rec.ParentID; pid != nil; {
		parent, err := s.repo.GetByID(ctx, *pid)
		if err != nil {
			if domain.IsNotFound(err) {
				return nil, domain.NewAppError(domain.CodeInternal, fmt.Sprintf("category %d has a missing ancestor %d", id, *pid), err)
			}
			return nil, err
		}
		if seen[parent.ID] {
			return nil, domain.NewAppError(domain.CodeInternal, fmt.Sprintf("category %d is part of a cycle", id), nil)
		}
		seen[parent.ID] = true
		chain = append(chain, *parent)
		pid = parent.ParentID
	}

	var node *Node
	for i := len(chain) - 1; i >= 0; i-- {
		node = Detach(chain[i], node, s.repo)
	}
	return node, nil
}

// Create validates and stores a new category. Names are unique among
// siblings, ignoring case.
func (s *Service) Create(ctx context.Context, name string, parentID *uint, ultimate bool) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewAppError(domain.CodeValidation, "name is required", nil)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, domain.NewAppError(domain.CodeValidation, fmt.Sprintf("name must be at most %d characters", maxNameLength), nil)
	}

	if parentID != nil {
		if _, err := s.repo.GetByID(ctx, *parentID); err != nil {
			if domain.IsNotFound(err) {
				return nil, domain.NewAppError(domain.CodeValidation, "parent category does not exist", nil)
			}
			return nil, err
		}
	}

	taken, err := s.repo.SiblingNameTaken(ctx, parentID, name)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, domain.NewAppError(domain.CodeAlreadyExists, "a sibling category with this name already exists", nil)
	}

	category := &domain.Category{Name: name, ParentID: parentID, Ultimate: ultimate}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "category created",
		slog.Uint64("category_id", uint64(category.ID)),
		slog.String("name", category.Name),
	)
	return category, nil
}
