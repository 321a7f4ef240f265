// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ardanlabs/lattice/business/web/errs"
	"github.com/ardanlabs/lattice/foundation/events"
	"github.com/ardanlabs/lattice/foundation/lattice/block"
	"github.com/ardanlabs/lattice/foundation/lattice/types"
	"github.com/ardanlabs/lattice/foundation/nameservice"
	"github.com/ardanlabs/lattice/foundation/node"
	"github.com/ardanlabs/lattice/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of public ledger endpoints.
type Handlers struct {
	Log  *zap.SugaredLogger
	Node *node.Node
	NS   *nameservice.NameService
	WS   websocket.Upgrader
	Evts *events.Events
}

// Events handles a web socket to provide events to a client. Repeated topic
// query values such as ?topic=ledger&topic=node limit the events sent.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID, r.URL.Query()["topic"]...)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Node.Genesis(), http.StatusOK)
}

// Account returns the account record, its weight and the receivable total.
func (h Handlers) Account(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	acct, err := types.ParseAccount(web.Param(r, "account"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	confirmed, err := boolQuery(r, "confirmed")
	if err != nil {
		return err
	}

	info, err := h.Node.QueryAccount(acct, confirmed)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, account{Account: info, Name: h.NS.Lookup(acct)}, http.StatusOK)
}

// Receivable returns the pending entries of the account.
func (h Handlers) Receivable(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	acct, err := types.ParseAccount(web.Param(r, "account"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	confirmed, err := boolQuery(r, "confirmed")
	if err != nil {
		return err
	}

	entries, err := h.Node.QueryReceivable(acct, confirmed)
	if err != nil {
		return err
	}

	out := make([]receivable, len(entries))
	for i, e := range entries {
		out[i] = receivable{
			Hash:   e.Key.Hash,
			Source: e.Info.Source,
			Name:   h.NS.Lookup(e.Info.Source),
			Amount: e.Info.Amount,
			Epoch:  e.Info.Epoch,
		}
	}

	return web.Respond(ctx, w, out, http.StatusOK)
}

// Block returns the stored block and its sideband.
func (h Handlers) Block(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	hash, err := types.ParseHash(web.Param(r, "hash"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	sb, confirmed, err := h.Node.QueryBlock(hash)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, savedBlock{Block: sb, Confirmed: confirmed}, http.StatusOK)
}

// Representatives returns the representatives ordered by weight.
func (h Handlers) Representatives(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	reps := h.Node.QueryRepresentatives()

	out := make([]representative, len(reps))
	for i, rep := range reps {
		out[i] = representative{Representative: rep, Name: h.NS.Lookup(rep.Account)}
	}

	return web.Respond(ctx, w, out, http.StatusOK)
}

// Quorum returns the current quorum inputs.
func (h Handlers) Quorum(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Node.QueryQuorum(), http.StatusOK)
}

// ProcessBlocks validates and inserts the submitted blocks in one
// transaction. Rejected blocks are reported without failing the request.
func (h Handlers) ProcessBlocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var req processRequest
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	blocks := make([]block.Block, len(req.Blocks))
	for i, env := range req.Blocks {
		if env.Block == nil {
			return errs.NewTrusted(fmt.Errorf("block %d is null", i), http.StatusBadRequest)
		}
		blocks[i] = env.Block
	}

	h.Log.Infow("process blocks", "traceid", v.TraceID, "blocks", len(blocks))

	results, err := h.Node.ProcessBlocks(ctx, blocks...)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, toProcessResults(results), http.StatusOK)
}

// =============================================================================

func boolQuery(r *http.Request, key string) (bool, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return false, nil
	}

	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, errs.NewTrusted(fmt.Errorf("invalid %s: %w", key, err), http.StatusBadRequest)
	}
	return b, nil
}
