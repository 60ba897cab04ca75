package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/xraph/distribution/entitlement"
	"github.com/xraph/distribution/event"
	"github.com/xraph/distribution/types"
)

type amountRequest struct {
	Amount string `json:"amount"`
}

type beneficiaryRequest struct {
	Beneficiary string `json:"beneficiary"`
	Amount      string `json:"amount"`
}

type batchRequest struct {
	Beneficiaries []string `json:"beneficiaries"`
	Amounts       []string `json:"amounts"`
}

type lockRequest struct {
	Locked *bool `json:"locked"`
}

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

func (h *Handler) getSettings(c *gin.Context) {
	locked, err := h.ledger.IsLocked(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"administrator": h.ledger.Administrator(),
		"custody":       h.ledger.Custody(),
		"locked":        locked,
	})
}

func (h *Handler) getReserve(c *gin.Context) {
	ctx := c.Request.Context()
	reserve, err := h.ledger.Reserve(ctx)
	if err != nil {
		h.writeError(c, err)
		return
	}
	outstanding, err := h.ledger.Outstanding(ctx)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reserve":     reserve,
		"outstanding": outstanding,
		"shortfall":   outstanding.SaturatingSub(reserve),
	})
}

func (h *Handler) getEntitlement(c *gin.Context) {
	addr, err := parseAddress(c.Param("address"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	amount, err := h.ledger.EntitlementOf(c.Request.Context(), addr)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"beneficiary": addr, "amount": amount})
}

func (h *Handler) listEntitlements(c *gin.Context) {
	limit, offset, err := parsePage(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	list, err := h.ledger.Beneficiaries(c.Request.Context(), entitlement.ListOpts{Limit: limit, Offset: offset})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entitlements": list})
}

func (h *Handler) listEvents(c *gin.Context) {
	limit, offset, err := parsePage(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	opts := event.ListOpts{Limit: limit, Offset: offset}

	if k := c.Query("kind"); k != "" {
		opts.Kind = event.Kind(k)
		if !opts.Kind.Valid() {
			h.writeError(c, fmt.Errorf("%w: unknown event kind %q", errInvalidArgument, k))
			return
		}
	}
	if a := c.Query("account"); a != "" {
		if opts.Account, err = parseAddress(a); err != nil {
			h.writeError(c, err)
			return
		}
	}

	list, err := h.ledger.Events(c.Request.Context(), opts)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": list})
}

// ──────────────────────────────────────────────────
// Commands
// ──────────────────────────────────────────────────

func (h *Handler) postDeposit(c *gin.Context) {
	amount, ok := h.bindAmount(c)
	if !ok {
		return
	}
	switch err := h.ledger.Deposit(c.Request.Context(), amount); {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"ok": true})
	case h.settled(c, err):
		c.JSON(http.StatusOK, gin.H{"ok": true, "warning": err.Error()})
	default:
		h.writeError(c, err)
	}
}

func (h *Handler) postEmergencyWithdraw(c *gin.Context) {
	amount, ok := h.bindAmount(c)
	if !ok {
		return
	}
	switch err := h.ledger.EmergencyWithdraw(c.Request.Context(), amount); {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"ok": true})
	case h.settled(c, err):
		c.JSON(http.StatusOK, gin.H{"ok": true, "warning": err.Error()})
	default:
		h.writeError(c, err)
	}
}

func (h *Handler) postBeneficiary(c *gin.Context) {
	var req beneficiaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, fmt.Errorf("%w: %v", errInvalidArgument, err))
		return
	}
	addr, err := parseAddress(req.Beneficiary)
	if err != nil {
		h.writeError(c, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if err := h.ledger.AddBeneficiary(c.Request.Context(), addr, amount); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) postBeneficiaries(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, fmt.Errorf("%w: %v", errInvalidArgument, err))
		return
	}

	addrs := make([]common.Address, len(req.Beneficiaries))
	for i, s := range req.Beneficiaries {
		addr, err := parseAddress(s)
		if err != nil {
			h.writeError(c, fmt.Errorf("beneficiaries[%d]: %w", i, err))
			return
		}
		addrs[i] = addr
	}
	amounts := make([]types.Amount, len(req.Amounts))
	for i, s := range req.Amounts {
		amount, err := parseAmount(s)
		if err != nil {
			h.writeError(c, fmt.Errorf("amounts[%d]: %w", i, err))
			return
		}
		amounts[i] = amount
	}

	if err := h.ledger.AddBeneficiaries(c.Request.Context(), addrs, amounts); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "count": len(addrs)})
}

func (h *Handler) postDecrease(c *gin.Context) {
	addr, err := parseAddress(c.Param("address"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	amount, ok := h.bindAmount(c)
	if !ok {
		return
	}
	if err := h.ledger.DecreaseReward(c.Request.Context(), addr, amount); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) postLock(c *gin.Context) {
	var req lockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, fmt.Errorf("%w: %v", errInvalidArgument, err))
		return
	}
	if req.Locked == nil {
		h.writeError(c, fmt.Errorf("%w: locked is required", errInvalidArgument))
		return
	}
	if err := h.ledger.LockRewards(c.Request.Context(), *req.Locked); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "locked": *req.Locked})
}

func (h *Handler) postClaim(c *gin.Context) {
	amount, err := h.ledger.Claim(c.Request.Context())
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"ok": true, "amount": amount})
	case h.settled(c, err):
		c.JSON(http.StatusOK, gin.H{"ok": true, "amount": amount, "warning": err.Error()})
	default:
		h.writeError(c, err)
	}
}

// ──────────────────────────────────────────────────
// Parsing helpers
// ──────────────────────────────────────────────────

func (h *Handler) bindAmount(c *gin.Context) (types.Amount, bool) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, fmt.Errorf("%w: %v", errInvalidArgument, err))
		return types.Zero, false
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.writeError(c, err)
		return types.Zero, false
	}
	return amount, true
}

// parseAddress accepts hex addresses. The zero address parses; the ledger
// rejects it where it matters.
func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q is not an address", errInvalidArgument, s)
	}
	return common.HexToAddress(s), nil
}

func parseAmount(s string) (types.Amount, error) {
	a, err := types.ParseAmount(s)
	if err != nil {
		return types.Zero, fmt.Errorf("%w: amount: %v", errInvalidArgument, err)
	}
	return a, nil
}

func parsePage(c *gin.Context) (limit, offset int, err error) {
	if v := c.Query("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			return 0, 0, fmt.Errorf("%w: limit %q", errInvalidArgument, v)
		}
	}
	switch {
	case limit == 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}
	if v := c.Query("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("%w: offset %q", errInvalidArgument, v)
		}
	}
	return limit, offset, nil
}
