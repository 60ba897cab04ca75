// Package api exposes the distribution ledger over HTTP.
//
// Reads are public. Commands need a bearer token whose subject is the
// caller's address; the ledger's access policy decides the rest.
package api

import (
	"context"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/xraph/distribution"
	"github.com/xraph/distribution/entitlement"
	"github.com/xraph/distribution/event"
	"github.com/xraph/distribution/types"
)

// Ledger is the part of *distribution.Ledger the HTTP surface uses.
type Ledger interface {
	Administrator() common.Address
	Custody() common.Address
	IsLocked(ctx context.Context) (bool, error)
	Reserve(ctx context.Context) (types.Amount, error)
	Outstanding(ctx context.Context) (types.Amount, error)
	EntitlementOf(ctx context.Context, beneficiary common.Address) (types.Amount, error)
	Beneficiaries(ctx context.Context, opts entitlement.ListOpts) ([]*entitlement.Entitlement, error)
	Events(ctx context.Context, opts event.ListOpts) ([]*event.Event, error)

	Deposit(ctx context.Context, amount types.Amount) error
	EmergencyWithdraw(ctx context.Context, amount types.Amount) error
	AddBeneficiary(ctx context.Context, beneficiary common.Address, amount types.Amount) error
	AddBeneficiaries(ctx context.Context, beneficiaries []common.Address, amounts []types.Amount) error
	DecreaseReward(ctx context.Context, beneficiary common.Address, amount types.Amount) error
	LockRewards(ctx context.Context, locked bool) error
	Claim(ctx context.Context) (types.Amount, error)
}

var _ Ledger = (*distribution.Ledger)(nil)

// Page sizes for list requests. A missing or zero limit gets
// DefaultPageSize; larger limits are clamped to MaxPageSize.
const (
	DefaultPageSize = 100
	MaxPageSize     = 1000
)

// Handler serves the ledger API.
type Handler struct {
	ledger   Ledger
	verifier Verifier
	logger   *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// New creates a Handler.
func New(l Ledger, v Verifier, opts ...Option) *Handler {
	h := &Handler{
		ledger:   l,
		verifier: v,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Engine returns a gin engine serving the API under basePath.
func (h *Handler) Engine(basePath string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID())
	h.Register(r.Group(basePath))
	return r
}

// Register mounts the API routes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.Use(Authenticate(h.verifier))

	r.GET("/settings", h.getSettings)
	r.GET("/reserve", h.getReserve)
	r.GET("/entitlements", h.listEntitlements)
	r.GET("/entitlements/:address", h.getEntitlement)
	r.GET("/events", h.listEvents)

	cmd := r.Group("", RequireCaller())
	cmd.POST("/deposit", h.postDeposit)
	cmd.POST("/emergency-withdraw", h.postEmergencyWithdraw)
	cmd.POST("/beneficiaries", h.postBeneficiary)
	cmd.POST("/beneficiaries/batch", h.postBeneficiaries)
	cmd.POST("/beneficiaries/:address/decrease", h.postDecrease)
	cmd.POST("/lock", h.postLock)
	cmd.POST("/claim", h.postClaim)
}
