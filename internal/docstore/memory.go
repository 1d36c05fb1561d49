package docstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"hirelane/pkg/platform/sentinel"
)

type document struct {
	content  []byte
	purpose  string
	ownerRef string
}

// Memory holds documents in a map. Dev and test backend.
type Memory struct {
	mu     sync.RWMutex
	docs   map[string]document
	signer *URLSigner
}

// NewMemory constructs an in-memory document store using signer for
// presigned URLs.
func NewMemory(signer *URLSigner) *Memory {
	return &Memory{
		docs:   make(map[string]document),
		signer: signer,
	}
}

func (m *Memory) Store(_ context.Context, content []byte, purpose string, ownerRef string) (string, error) {
	if len(content) == 0 {
		return "", fmt.Errorf("store document: empty content")
	}
	ref := fmt.Sprintf("%s-%s", purpose, uuid.NewString())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[ref] = document{
		content:  append([]byte(nil), content...),
		purpose:  purpose,
		ownerRef: ownerRef,
	}
	return ref, nil
}

func (m *Memory) Delete(_ context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[ref]; !ok {
		return sentinel.ErrNotFound
	}
	delete(m.docs, ref)
	return nil
}

func (m *Memory) PresignedURL(_ context.Context, ref string, expiry time.Duration) (string, error) {
	m.mu.RLock()
	doc, ok := m.docs[ref]
	m.mu.RUnlock()

	if !ok {
		return "", sentinel.ErrNotFound
	}
	return m.signer.SignURL(ref, doc.purpose, expiry)
}

// Content returns the stored bytes. Used by the download path and tests.
func (m *Memory) Content(ref string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[ref]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), doc.content...), true
}
