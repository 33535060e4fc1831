package prooflist

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/codec"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/merkle"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/persistence"
	"go.uber.org/zap"
)

var listNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,128}$`)

// ValidateName checks that name can be used as a list name.
func ValidateName(name string) error {
	if !listNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidListName, name)
	}
	return nil
}

// Group is a family of lists of the same element type sharing one store,
// for example one transaction history per wallet address.
type Group[V any] struct {
	store  persistence.IListPersistence
	codec  codec.Codec[V]
	hasher merkle.Hasher
	logger *zap.Logger

	mu    sync.Mutex
	lists map[string]*ProofList[V]
}

// NewGroup creates a group over store. Lists are opened lazily.
func NewGroup[V any](
	store persistence.IListPersistence,
	c codec.Codec[V],
	hasher merkle.Hasher,
	logger *zap.Logger,
) *Group[V] {
	return &Group[V]{
		store:  store,
		codec:  c,
		hasher: hasher,
		logger: logger,
		lists:  make(map[string]*ProofList[V]),
	}
}

// Hasher returns the hasher shared by the lists of the group.
func (g *Group[V]) Hasher() merkle.Hasher {
	return g.hasher
}

// Get returns the list stored under name, opening it on first use. A list
// that was never written is empty.
func (g *Group[V]) Get(name string) (*ProofList[V], error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if l, ok := g.lists[name]; ok {
		return l, nil
	}

	l, err := New(name, g.store, g.codec, g.hasher, g.logger)
	if err != nil {
		return nil, err
	}
	g.lists[name] = l
	return l, nil
}

// Exists reports whether a list has ever been written under name.
func (g *Group[V]) Exists(name string) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}
	meta, err := g.store.LoadMeta(name)
	if err != nil {
		return false, fmt.Errorf("failed to load list %s: %w", name, err)
	}
	return meta != nil, nil
}

// Names returns the names of all stored lists sorted ascending.
func (g *Group[V]) Names() ([]string, error) {
	return g.store.ListNames()
}

// Delete removes the list stored under name.
func (g *Group[V]) Delete(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if l, ok := g.lists[name]; ok {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.length = 0
		l.deleted = true
		delete(g.lists, name)
	}

	if err := g.store.DeleteList(name); err != nil {
		return fmt.Errorf("failed to delete list %s: %w", name, err)
	}

	g.logger.Sugar().Infow("Deleted list", "list", name)
	return nil
}
