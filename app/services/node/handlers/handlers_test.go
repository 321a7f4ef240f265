package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/ardanlabs/lattice/app/services/node/handlers"
	"github.com/ardanlabs/lattice/business/web/errs"
	"github.com/ardanlabs/lattice/foundation/events"
	"github.com/ardanlabs/lattice/foundation/lattice/block"
	"github.com/ardanlabs/lattice/foundation/lattice/genesis"
	"github.com/ardanlabs/lattice/foundation/lattice/signature"
	"github.com/ardanlabs/lattice/foundation/lattice/store"
	"github.com/ardanlabs/lattice/foundation/lattice/store/memory"
	"github.com/ardanlabs/lattice/foundation/lattice/types"
	"github.com/ardanlabs/lattice/foundation/nameservice"
	"github.com/ardanlabs/lattice/foundation/node"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	success = "✓"
	failed  = "✗"
)

type api struct {
	gen     genesis.Genesis
	public  http.Handler
	private http.Handler
}

func newAPI(t *testing.T) api {
	t.Helper()

	gen := genesis.Dev()
	n, err := node.New(node.Config{Store: store.New(memory.New()), Genesis: gen})
	require.NoError(t, err)
	t.Cleanup(func() { n.Shutdown() })

	ns, err := nameservice.New(t.TempDir())
	require.NoError(t, err)

	cfg := handlers.MuxConfig{
		Shutdown: make(chan os.Signal, 1),
		Log:      zap.NewNop().Sugar(),
		Node:     n,
		NS:       ns,
		Evts:     events.New(),
	}

	return api{
		gen:     gen,
		public:  handlers.PublicMux(cfg),
		private: handlers.PrivateMux(cfg),
	}
}

func (a api) do(t *testing.T, h http.Handler, method string, path string, body any, resp any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	r := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if resp != nil {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), resp))
	}

	return w.Code
}

func (a api) send(t *testing.T, dest types.Account, amount types.Amount) block.Block {
	t.Helper()

	balance, _ := a.gen.Supply.Sub(amount)
	blk := block.NewState(genesis.DevKey()).
		Previous(a.gen.Hash()).
		Representative(a.gen.Account()).
		Balance(balance).
		SendTo(dest).
		Build()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	require.NoError(t, block.GenerateWork(ctx, blk, a.gen.Work.For(types.Epoch0, false), nil))

	return blk
}

// =============================================================================

func TestProcessAndQuery(t *testing.T) {
	t.Log("Given the need to submit blocks and query the ledger over HTTP.")
	{
		a := newAPI(t)
		dest := signature.PublicKeyToAccount(signature.GenerateKey())
		send := a.send(t, dest, types.NewAmount(25))

		body := map[string]any{"blocks": []block.Envelope{{Block: send}, {Block: send}}}

		var results []struct {
			Hash   types.BlockHash `json:"hash"`
			Status string          `json:"status"`
			Height uint64          `json:"height"`
		}
		code := a.do(t, a.public, http.MethodPost, "/v1/blocks/process", body, &results)
		require.Equal(t, http.StatusOK, code)
		require.Len(t, results, 2)
		require.Equal(t, "progress", results[0].Status)
		require.Equal(t, uint64(2), results[0].Height)
		require.Equal(t, "old", results[1].Status)
		t.Logf("\t%s\tShould report a status per block.", success)

		var receivable []struct {
			Hash   types.BlockHash `json:"hash"`
			Amount types.Amount    `json:"amount"`
		}
		code = a.do(t, a.public, http.MethodGet, "/v1/accounts/"+dest.Address()+"/receivable", nil, &receivable)
		require.Equal(t, http.StatusOK, code)
		require.Len(t, receivable, 1)
		require.Equal(t, send.Hash(), receivable[0].Hash)
		require.True(t, receivable[0].Amount.Equal(types.NewAmount(25)))
		t.Logf("\t%s\tShould list the receivable of the destination.", success)

		var resp errs.Response
		code = a.do(t, a.public, http.MethodGet, "/v1/accounts/"+dest.Address(), nil, &resp)
		require.Equal(t, http.StatusNotFound, code)

		code = a.do(t, a.public, http.MethodGet, "/v1/accounts/nope", nil, &resp)
		require.Equal(t, http.StatusBadRequest, code)

		code = a.do(t, a.public, http.MethodPost, "/v1/blocks/process", map[string]any{"blocks": []any{}}, &resp)
		require.Equal(t, http.StatusBadRequest, code)
		require.Contains(t, resp.Fields, "blocks")
		t.Logf("\t%s\tShould map client errors to 4xx.", success)

		var saved struct {
			Confirmed bool `json:"confirmed"`
		}
		code = a.do(t, a.public, http.MethodGet, "/v1/blocks/"+send.Hash().String(), nil, &saved)
		require.Equal(t, http.StatusOK, code)
		require.False(t, saved.Confirmed)

		var cemented struct {
			Cemented []types.BlockHash `json:"cemented"`
		}
		code = a.do(t, a.private, http.MethodPost, "/v1/blocks/confirm/"+send.Hash().String(), nil, &cemented)
		require.Equal(t, http.StatusOK, code)
		require.Equal(t, []types.BlockHash{send.Hash()}, cemented.Cemented)

		code = a.do(t, a.private, http.MethodPost, "/v1/blocks/rollback/"+send.Hash().String(), nil, &resp)
		require.Equal(t, http.StatusConflict, code)
		t.Logf("\t%s\tShould refuse to roll back a cemented block.", success)
	}
}

func TestQuorumRoutes(t *testing.T) {
	t.Log("Given the need to report representatives and quorum.")
	{
		a := newAPI(t)

		var reps []struct {
			Account types.Account `json:"account"`
			Weight  types.Amount  `json:"weight"`
		}
		code := a.do(t, a.public, http.MethodGet, "/v1/representatives", nil, &reps)
		require.Equal(t, http.StatusOK, code)
		require.Len(t, reps, 1)
		require.Equal(t, a.gen.Account(), reps[0].Account)
		require.True(t, reps[0].Weight.Equal(a.gen.Supply))

		vote := map[string]any{"representative": a.gen.Account(), "hash": a.gen.Hash()}
		var res node.VoteResult
		code = a.do(t, a.private, http.MethodPost, "/v1/votes", vote, &res)
		require.Equal(t, http.StatusOK, code)
		require.True(t, res.Confirmed)

		var q node.Quorum
		code = a.do(t, a.public, http.MethodGet, "/v1/quorum", nil, &q)
		require.Equal(t, http.StatusOK, code)
		require.Equal(t, 1, q.OnlineReps)
		require.True(t, q.Online.Equal(a.gen.Supply))
		t.Logf("\t%s\tShould count the voting representative online.", success)
	}
}
