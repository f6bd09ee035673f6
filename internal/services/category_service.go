package services

import (
	"context"

	"github.com/kuberan/ledgersync/internal/models"
	"github.com/kuberan/ledgersync/internal/store"
)

// categoryService reconciles the transaction category list.
type categoryService struct {
	sy *Syncer
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(sy *Syncer) CategoryServicer {
	return &categoryService{sy: sy}
}

// RefreshTransactionCategories fetches every category and evicts the rest.
func (s *categoryService) RefreshTransactionCategories(ctx context.Context) error {
	_, err := reconcile(ctx, s.sy, s.sy.store.Categories, fetch{
		family: "transaction_categories",
		path:   pathCategories,
		evict:  true,
	})
	return err
}

func (s *categoryService) TransactionCategories(ctx context.Context, scopes ...store.Scope) *store.Live[[]models.TransactionCategory] {
	return s.sy.store.Categories.Load(ctx, scopes...)
}

func (s *categoryService) TransactionCategory(ctx context.Context, id int64) *store.Live[*models.TransactionCategory] {
	return s.sy.store.Categories.LoadByID(ctx, id)
}
