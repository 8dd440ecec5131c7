package loaders

import (
	"context"
	"net/http"

	"github.com/graph-gophers/dataloader/v7"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
	"github.com/adcatlas/curation-backend/internal/domain/repositories"
	apperrors "github.com/adcatlas/curation-backend/pkg/errors"
)

type ctxKey string

const loadersKey ctxKey = "dataloaders"

// Loaders contains the request-scoped dataloaders
type Loaders struct {
	EvidenceLoader *dataloader.Loader[string, *entities.EvidenceItem]
}

// NewLoaders creates a new instance of Loaders
func NewLoaders(evidenceRepo repositories.EvidenceRepository) *Loaders {
	return &Loaders{
		EvidenceLoader: dataloader.NewBatchedLoader(func(ctx context.Context, keys []string) []*dataloader.Result[*entities.EvidenceItem] {
			results := make([]*dataloader.Result[*entities.EvidenceItem], len(keys))
			items, err := evidenceRepo.GetByIDs(ctx, keys)

			itemMap := make(map[string]*entities.EvidenceItem, len(items))
			if err == nil {
				for _, item := range items {
					itemMap[item.ID] = item
				}
			}

			for i, key := range keys {
				if err != nil {
					results[i] = &dataloader.Result[*entities.EvidenceItem]{Error: err}
				} else if item, ok := itemMap[key]; ok {
					results[i] = &dataloader.Result[*entities.EvidenceItem]{Data: item}
				} else {
					results[i] = &dataloader.Result[*entities.EvidenceItem]{
						Error: apperrors.NewNotFoundError("evidence item not found").WithID(key),
					}
				}
			}
			return results
		}),
	}
}

// LoadEvidence resolves evidence ids in one batch. Missing ids are skipped;
// the first storage error aborts.
func (l *Loaders) LoadEvidence(ctx context.Context, ids []string) (map[string]*entities.EvidenceItem, error) {
	out := make(map[string]*entities.EvidenceItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	items, errs := l.EvidenceLoader.LoadMany(ctx, ids)()
	for i, id := range ids {
		if errs != nil && errs[i] != nil {
			if apperrors.IsNotFound(errs[i]) {
				continue
			}
			return nil, errs[i]
		}
		out[id] = items[i]
	}
	return out, nil
}

// For returns the loaders for a given context, or nil when none are attached
func For(ctx context.Context) *Loaders {
	l, _ := ctx.Value(loadersKey).(*Loaders)
	return l
}

// WithLoaders returns a new context with the loaders attached
func WithLoaders(ctx context.Context, loaders *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, loaders)
}

// Middleware attaches fresh loaders to every request
func Middleware(evidenceRepo repositories.EvidenceRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithLoaders(r.Context(), NewLoaders(evidenceRepo))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
