// Package gearshop is the authorization and catalog core of the gearshop
// backend: identity verification, the role hierarchy, resource ownership
// checks, and the role-escalation workflow, together with the account and
// product operations they guard.
package gearshop

import (
	"context"

	"github.com/gearshop/gearshop/pkg/crypto"
	oerrors "github.com/gearshop/gearshop/pkg/errors"
	"github.com/gearshop/gearshop/pkg/storage"
	"github.com/gearshop/gearshop/pkg/token"
	"github.com/go-logr/logr"
)

type Client struct {
	store     storage.Store
	hasher    crypto.Hasher
	issuer    token.Issuer
	validator token.Validator
	tokenTTL  TokenConfig
	catalog   CatalogConfig
	bootstrap BootstrapConfig
	logger    logr.Logger

	closeResource func() error
}

// New builds a Client from the given configuration, resolving any backends
// left unset (storage, hasher, token codec) per Config.Runtime.
func New(config Config) (*Client, error) {
	closeResource, resolved, err := config.initialize(context.Background())
	if err != nil {
		return nil, err
	}

	return &Client{
		store:         resolved.Store,
		hasher:        resolved.Hasher,
		issuer:        resolved.TokenIssuer,
		validator:     resolved.TokenValidator,
		tokenTTL:      resolved.Tokens,
		catalog:       resolved.Catalog,
		bootstrap:     resolved.Bootstrap,
		logger:        resolved.Logger,
		closeResource: closeResource,
	}, nil
}

// Catalog exposes the resolved category configuration so callers (the HTTP
// layer, CLI) read the same single value the policy engine enforces.
func (c *Client) Catalog() CatalogConfig {
	if c == nil {
		return CatalogConfig{}
	}
	return c.catalog
}

func (c *Client) Close() error {
	if c == nil || c.closeResource == nil {
		return nil
	}

	err := c.closeResource()
	if err != nil {
		return oerrors.Wrap(oerrors.CodeUnknown, "failed to close client resources", err)
	}
	c.closeResource = nil
	return nil
}
