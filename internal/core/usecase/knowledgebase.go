package usecase

import (
	"context"
	"fmt"

	"github.com/vlasenkov/knowledge-base/internal/core/domain"
	"github.com/vlasenkov/knowledge-base/internal/core/ports"
)

type ManageKnowledgeBaseUseCase struct {
	bases ports.KnowledgeBaseRepository
}

func NewManageKnowledgeBaseUseCase(bases ports.KnowledgeBaseRepository) *ManageKnowledgeBaseUseCase {
	return &ManageKnowledgeBaseUseCase{bases: bases}
}

func (uc *ManageKnowledgeBaseUseCase) Create(
	ctx context.Context,
	name, description, createdBy string,
	config *domain.SearchConfiguration,
) (*domain.KnowledgeBase, error) {
	kb, err := domain.CreateKnowledgeBase(name, description, createdBy, config)
	if err != nil {
		return nil, err
	}
	if err := uc.bases.Save(ctx, kb); err != nil {
		return nil, fmt.Errorf("save knowledge base: %w", err)
	}
	return kb, nil
}

func (uc *ManageKnowledgeBaseUseCase) Get(ctx context.Context, id string) (*domain.KnowledgeBase, error) {
	kb, err := uc.bases.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch knowledge base: %w", err)
	}
	return kb, nil
}

func (uc *ManageKnowledgeBaseUseCase) UpdateSearchConfiguration(
	ctx context.Context,
	id string,
	config domain.SearchConfiguration,
) error {
	kb, err := uc.bases.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch knowledge base: %w", err)
	}
	kb.UpdateSearchConfiguration(config)
	if err := uc.bases.Save(ctx, kb); err != nil {
		return fmt.Errorf("save knowledge base: %w", err)
	}
	return nil
}

func (uc *ManageKnowledgeBaseUseCase) UpdateStatus(
	ctx context.Context,
	id string,
	status domain.KnowledgeBaseStatus,
) error {
	kb, err := uc.bases.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch knowledge base: %w", err)
	}
	kb.UpdateStatus(status)
	if err := uc.bases.Save(ctx, kb); err != nil {
		return fmt.Errorf("save knowledge base: %w", err)
	}
	return nil
}

func (uc *ManageKnowledgeBaseUseCase) RemoveDocument(ctx context.Context, id, documentID string) error {
	kb, err := uc.bases.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch knowledge base: %w", err)
	}
	if err := kb.RemoveDocument(documentID); err != nil {
		return err
	}
	if err := uc.bases.Save(ctx, kb); err != nil {
		return fmt.Errorf("save knowledge base: %w", err)
	}
	return nil
}
