package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ardanlabs/lattice/business/web/errs"
	"github.com/ardanlabs/lattice/foundation/lattice/block"
	"github.com/ardanlabs/lattice/foundation/lattice/types"
	"github.com/ardanlabs/lattice/foundation/lattice/work"
	"github.com/ardanlabs/lattice/foundation/node"
)

var errNotFound = errors.New("not found")

type processResult struct {
	Hash   types.BlockHash `json:"hash"`
	Status string          `json:"status"`
	Error  string          `json:"error"`
	Height uint64          `json:"height"`
}

func getJSON(path string, v any) error {
	resp, err := http.Get(url + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeResponse(resp, v)
}

func postJSON(path string, body any, v any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	resp, err := http.Post(url+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeResponse(resp, v)
}

func decodeResponse(resp *http.Response, v any) error {
	if resp.StatusCode != http.StatusOK {
		var er errs.Response
		if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
			return fmt.Errorf("status %d", resp.StatusCode)
		}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%s: %w", er.Error, errNotFound)
		}
		return fmt.Errorf("status %d: %s", resp.StatusCode, er.Error)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

// fetchAccount returns the account from the node. The bool is false when the
// account is not opened yet.
func fetchAccount(acct types.Account) (node.Account, bool, error) {
	var info node.Account
	err := getJSON("/v1/accounts/"+acct.Address(), &info)
	switch {
	case errors.Is(err, errNotFound):
		return node.Account{}, false, nil
	case err != nil:
		return node.Account{}, false, err
	}
	return info, true, nil
}

type receivable struct {
	Hash   types.BlockHash `json:"hash"`
	Source types.Account   `json:"source"`
	Amount types.Amount    `json:"amount"`
	Epoch  types.Epoch     `json:"epoch"`
}

func fetchReceivable(acct types.Account, confirmed bool) ([]receivable, error) {
	path := "/v1/accounts/" + acct.Address() + "/receivable"
	if confirmed {
		path += "?confirmed=true"
	}

	var entries []receivable
	if err := getJSON(path, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func fetchThresholds() (work.Thresholds, error) {
	var gen struct {
		Work work.Thresholds `json:"work"`
	}
	if err := getJSON("/v1/genesis", &gen); err != nil {
		return work.Thresholds{}, err
	}
	return gen.Work, nil
}

func submit(blocks ...block.Block) ([]processResult, error) {
	req := struct {
		Blocks []block.Envelope `json:"blocks"`
	}{
		Blocks: make([]block.Envelope, len(blocks)),
	}
	for i, b := range blocks {
		req.Blocks[i] = block.Envelope{Block: b}
	}

	var results []processResult
	if err := postJSON("/v1/blocks/process", req, &results); err != nil {
		return nil, err
	}
	return results, nil
}
