package identity

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"
)

// MemoryGateway is an in-process Gateway for local development and tests.
type MemoryGateway struct {
	mu          sync.RWMutex
	identities  map[string]*Identity
	invitations []InvitationRequest

	// FailInvitations makes CreateInvitation return the given error.
	FailInvitations error
	// FailLookups makes FindByEmail and GetIdentity return the given error.
	FailLookups error
}

// NewMemoryGateway creates an empty in-memory gateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{identities: make(map[string]*Identity)}
}

// Put stores or replaces an identity.
func (g *MemoryGateway) Put(id *Identity) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cp := *id
	cp.Email = strings.ToLower(cp.Email)
	cp.PublicMetadata = maps.Clone(id.PublicMetadata)
	g.identities[cp.ID] = &cp
}

// FindByEmail implements Gateway.
func (g *MemoryGateway) FindByEmail(_ context.Context, email string) (*Identity, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.FailLookups != nil {
		return nil, g.FailLookups
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, id := range g.identities {
		if id.Email == email {
			return g.copy(id), nil
		}
	}
	return nil, nil
}

// GetIdentity implements Gateway.
func (g *MemoryGateway) GetIdentity(_ context.Context, id string) (*Identity, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.FailLookups != nil {
		return nil, g.FailLookups
	}
	found, ok := g.identities[id]
	if !ok {
		return nil, ErrIdentityNotFound
	}
	return g.copy(found), nil
}

// CreateInvitation implements Gateway.
func (g *MemoryGateway) CreateInvitation(_ context.Context, req InvitationRequest) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailInvitations != nil {
		return g.FailInvitations
	}
	req.PublicMetadata = maps.Clone(req.PublicMetadata)
	g.invitations = append(g.invitations, req)
	return nil
}

// UpdatePublicMetadata implements Gateway.
func (g *MemoryGateway) UpdatePublicMetadata(_ context.Context, id string, patch map[string]any) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	found, ok := g.identities[id]
	if !ok {
		return fmt.Errorf("update metadata %s: %w", id, ErrIdentityNotFound)
	}
	if found.PublicMetadata == nil {
		found.PublicMetadata = make(map[string]any)
	}
	for k, v := range patch {
		if v == nil {
			delete(found.PublicMetadata, k)
			continue
		}
		found.PublicMetadata[k] = v
	}
	return nil
}

// Invitations returns the invitations issued so far.
func (g *MemoryGateway) Invitations() []InvitationRequest {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]InvitationRequest(nil), g.invitations...)
}

func (g *MemoryGateway) copy(id *Identity) *Identity {
	cp := *id
	cp.PublicMetadata = maps.Clone(id.PublicMetadata)
	return &cp
}
