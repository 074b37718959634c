package services

import (
	"context"
	"errors"
	"sync"

	"github.com/devilmonastery/bnetsso/internal/domain/entities"
	"github.com/devilmonastery/bnetsso/internal/domain/repositories"
	"github.com/devilmonastery/bnetsso/internal/infrastructure/memory"
)

var errStoreDown = errors.New("store unavailable")

// flakyLinks wraps an association store and fails selected operations
type flakyLinks struct {
	repositories.AssociationStore

	mu        sync.Mutex
	failPut  bool
	failGet  bool
	failDel  bool
	putCalls int
	getCalls int
	delCalls int
}

func newFlakyLinks() *flakyLinks {
	return &flakyLinks{AssociationStore: memory.NewAssociationStore()}
}

func (f *flakyLinks) Len() int {
	return f.AssociationStore.(*memory.AssociationStore).Len()
}

func (f *flakyLinks) Put(ctx context.Context, externalID, userID string) error {
	f.mu.Lock()
	f.putCalls++
	fail := f.failPut
	f.mu.Unlock()
	if fail {
		return errStoreDown
	}
	return f.AssociationStore.Put(ctx, externalID, userID)
}

func (f *flakyLinks) Get(ctx context.Context, externalID string) (string, bool, error) {
	f.mu.Lock()
	f.getCalls++
	fail := f.failGet
	f.mu.Unlock()
	if fail {
		return "", false, errStoreDown
	}
	return f.AssociationStore.Get(ctx, externalID)
}

func (f *flakyLinks) Delete(ctx context.Context, externalID string) error {
	f.mu.Lock()
	f.delCalls++
	fail := f.failDel
	f.mu.Unlock()
	if fail {
		return errStoreDown
	}
	return f.AssociationStore.Delete(ctx, externalID)
}

// flakyUsers wraps the in-memory user repository and fails selected operations
type flakyUsers struct {
	*memory.UserRepository

	mu          sync.Mutex
	failCreate  bool
	failFields  bool
	createCalls int
}

func newFlakyUsers() *flakyUsers {
	return &flakyUsers{UserRepository: memory.NewUserRepository()}
}

func (f *flakyUsers) Create(ctx context.Context, user *entities.User) error {
	f.mu.Lock()
	f.createCalls++
	fail := f.failCreate
	f.mu.Unlock()
	if fail {
		return errStoreDown
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.UserRepository.Create(ctx, user)
}

func (f *flakyUsers) SetProviderFields(ctx context.Context, id string, fields entities.ProviderFields) error {
	f.mu.Lock()
	fail := f.failFields
	f.mu.Unlock()
	if fail {
		return errStoreDown
	}
	return f.UserRepository.SetProviderFields(ctx, id, fields)
}
