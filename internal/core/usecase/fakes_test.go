package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/vlasenkov/knowledge-base/internal/core/domain"
	"github.com/vlasenkov/knowledge-base/internal/core/ports"
)

type documentRepoFake struct {
	docs    map[string]*domain.Document
	getErr  error
	saveErr error
	saves   int
}

func newDocumentRepoFake() *documentRepoFake {
	return &documentRepoFake{docs: make(map[string]*domain.Document)}
}

func (f *documentRepoFake) Save(_ context.Context, doc *domain.Document) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.docs[doc.ID] = doc
	f.saves++
	return nil
}

func (f *documentRepoFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "fetch document", errors.New(id))
	}
	return doc, nil
}

type kbRepoFake struct {
	bases   map[string]*domain.KnowledgeBase
	getErr  error
	saveErr error
	saves   int
}

func newKBRepoFake() *kbRepoFake {
	return &kbRepoFake{bases: make(map[string]*domain.KnowledgeBase)}
}

func (f *kbRepoFake) Save(_ context.Context, kb *domain.KnowledgeBase) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.bases[kb.ID] = kb
	f.saves++
	return nil
}

func (f *kbRepoFake) GetByID(_ context.Context, id string) (*domain.KnowledgeBase, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	kb, ok := f.bases[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "fetch knowledge base", errors.New(id))
	}
	return kb, nil
}

type storageFake struct {
	saved map[string][]byte
	err   error
}

func newStorageFake() *storageFake {
	return &storageFake{saved: make(map[string][]byte)}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.saved[key] = raw
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	raw, ok := f.saved[key]
	if !ok {
		return nil, errors.New("object not found: " + key)
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

type queueFake struct {
	published [][2]string
	err       error
}

func (f *queueFake) PublishDocumentUploaded(_ context.Context, knowledgeBaseID, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, [2]string{knowledgeBaseID, documentID})
	return nil
}

func (f *queueFake) SubscribeDocumentUploaded(context.Context, func(context.Context, string, string) error) error {
	return nil
}

type eventSinkFake struct {
	events []domain.Event
	err    error
}

func (f *eventSinkFake) PublishEvents(_ context.Context, events []domain.Event) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, events...)
	return nil
}

type extractorFake struct {
	segments []ports.ExtractedSegment
	err      error
}

func (f *extractorFake) Extract(context.Context, *domain.Document) ([]ports.ExtractedSegment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.segments, nil
}

type embedderFake struct {
	vectors    [][]float32
	queryVec   []float32
	embedErr   error
	queryErr   error
	queryCalls int
}

func (f *embedderFake) Embed(context.Context, []string) ([][]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	return f.vectors, nil
}

func (f *embedderFake) EmbedQuery(context.Context, string) ([]float32, error) {
	f.queryCalls++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.queryVec, nil
}

func dimVector(dim, hot int) []float32 {
	v := make([]float32, dim)
	v[hot] = 1
	return v
}
