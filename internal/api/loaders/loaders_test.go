package loaders

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
)

type countingEvidenceRepo struct {
	items map[string]*entities.EvidenceItem
	calls atomic.Int32
	err   error
}

func (r *countingEvidenceRepo) Create(ctx context.Context, item *entities.EvidenceItem) error {
	return nil
}

func (r *countingEvidenceRepo) GetByID(ctx context.Context, id string) (*entities.EvidenceItem, error) {
	return r.items[id], nil
}

func (r *countingEvidenceRepo) GetByIDs(ctx context.Context, ids []string) ([]*entities.EvidenceItem, error) {
	r.calls.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	var out []*entities.EvidenceItem
	for _, id := range ids {
		if item, ok := r.items[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func TestLoadEvidence_BatchesAndSkipsMissing(t *testing.T) {
	repo := &countingEvidenceRepo{items: map[string]*entities.EvidenceItem{
		"e1": {ID: "e1", Title: "DESTINY-Breast03"},
		"e2": {ID: "e2", Title: "EMILIA"},
	}}
	l := NewLoaders(repo)

	got, err := l.LoadEvidence(context.Background(), []string{"e1", "missing", "e2"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "EMILIA", got["e2"].Title)
	assert.Equal(t, int32(1), repo.calls.Load())
}

func TestLoadEvidence_StorageError(t *testing.T) {
	l := NewLoaders(&countingEvidenceRepo{err: errors.New("connection refused")})
	_, err := l.LoadEvidence(context.Background(), []string{"e1"})
	assert.Error(t, err)
}

func TestMiddleware_AttachesLoaders(t *testing.T) {
	var seen *Loaders
	h := Middleware(&countingEvidenceRepo{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = For(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotNil(t, seen)
	assert.Nil(t, For(context.Background()))
}
