// Package private maintains the group of handlers for operator access.
package private

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ardanlabs/lattice/business/web/errs"
	"github.com/ardanlabs/lattice/foundation/lattice/types"
	"github.com/ardanlabs/lattice/foundation/node"
	"github.com/ardanlabs/lattice/foundation/web"
	"go.uber.org/zap"
)

// defaultPruneLimit is used when the request names no limit.
const defaultPruneLimit = 1024

// Handlers manages the set of operator endpoints.
type Handlers struct {
	Log  *zap.SugaredLogger
	Node *node.Node
}

// Rollback removes the block and everything that depends on it.
func (h Handlers) Rollback(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	hash, err := types.ParseHash(web.Param(r, "hash"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("rollback", "traceid", web.GetTraceID(ctx), "hash", hash)

	rolled, err := h.Node.Rollback(ctx, hash)
	if err != nil {
		return err
	}

	resp := struct {
		RolledBack []types.BlockHash `json:"rolled_back"`
	}{
		RolledBack: rolled,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Confirm cements the block and its dependencies.
func (h Handlers) Confirm(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	hash, err := types.ParseHash(web.Param(r, "hash"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("confirm", "traceid", web.GetTraceID(ctx), "hash", hash)

	cemented, err := h.Node.Confirm(ctx, hash)
	if err != nil {
		return err
	}

	hashes := make([]types.BlockHash, len(cemented))
	for i, sb := range cemented {
		hashes[i] = sb.Hash()
	}

	resp := struct {
		Cemented []types.BlockHash `json:"cemented"`
	}{
		Cemented: hashes,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Prune moves cemented blocks below the frontier into the pruned table.
func (h Handlers) Prune(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	hash, err := types.ParseHash(web.Param(r, "hash"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	limit := uint64(defaultPruneLimit)
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err = strconv.ParseUint(s, 10, 64)
		if err != nil {
			return errs.NewTrusted(fmt.Errorf("invalid limit: %w", err), http.StatusBadRequest)
		}
	}

	pruned, err := h.Node.Prune(ctx, hash, limit)
	if err != nil {
		return err
	}

	resp := struct {
		Pruned uint64 `json:"pruned"`
	}{
		Pruned: pruned,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// voteRequest is the body of a representative vote.
type voteRequest struct {
	Representative types.Account   `json:"representative" validate:"required"`
	Hash           types.BlockHash `json:"hash" validate:"required"`
}

// Vote records a representative vote and cements the block once the voters
// reach quorum.
func (h Handlers) Vote(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req voteRequest
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	res, err := h.Node.Vote(ctx, req.Representative, req.Hash)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, res, http.StatusOK)
}
