// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mealeark/education-cryptomoji/business/web/errs"
	"github.com/mealeark/education-cryptomoji/foundation/events"
	"github.com/mealeark/education-cryptomoji/foundation/ledger/chain"
	"github.com/mealeark/education-cryptomoji/foundation/ledger/database"
	"github.com/mealeark/education-cryptomoji/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	Chain *chain.Chain
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
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

	ch := h.Evts.Acquire(v.TraceID)
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
	gen := h.Chain.Genesis()
	return web.Respond(ctx, w, gen, http.StatusOK)
}

// SubmitBlock takes a batch of signed transactions, mines them into the
// next block and appends it to the chain. The admission search runs under
// the request context, so a disconnecting client abandons the work.
func (h Handlers) SubmitBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var sb submitBlock
	if err := web.Decode(r, &sb); err != nil {
		return err
	}

	txs, err := sb.toSignedTxs()
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("submit block", "traceid", v.TraceID, "txs", len(txs))

	block, err := h.Chain.AddBlock(r.Context(), txs)
	if err != nil {
		switch {
		case errors.Is(err, chain.ErrInvalidTransaction), errors.Is(err, chain.ErrNoTransactions):
			return errs.NewTrusted(err, http.StatusBadRequest)
		case r.Context().Err() != nil:
			return errs.NewTrusted(err, http.StatusRequestTimeout)
		default:
			return err
		}
	}

	return web.Respond(ctx, w, database.NewBlockData(block), http.StatusCreated)
}

// ChainList returns the blocks of the chain, optionally filtered down to the
// blocks holding a transaction for the specified account.
func (h Handlers) ChainList(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	acct := web.Param(r, "account")

	blocks := h.Chain.Blocks()

	if acct == "" {
		return web.Respond(ctx, w, blocks, http.StatusOK)
	}

	accountID, err := database.ToAccountID(acct)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	var out []database.BlockData
	for _, blockData := range blocks {
		for _, tx := range blockData.Trans {
			if tx.FromID == accountID || tx.ToID == accountID {
				out = append(out, blockData)
				break
			}
		}
	}

	if len(out) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	return web.Respond(ctx, w, out, http.StatusOK)
}

// Validate walks the chain confirming hash linkage and hash recomputation
// for every block.
func (h Handlers) Validate(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := h.Chain.Validate(); err != nil {
		return web.Respond(ctx, w, validity{Valid: false, Reason: err.Error()}, http.StatusConflict)
	}

	return web.Respond(ctx, w, validity{Valid: true}, http.StatusOK)
}

// Balances returns the net balances derived from replaying the chain,
// for every account or for the one specified.
func (h Handlers) Balances(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	acct := web.Param(r, "account")

	var bals []balance
	switch acct {
	case "":
		all := h.Chain.Balances()
		for accountID, amount := range all {
			bals = append(bals, balance{Account: accountID, Balance: amount})
		}
		sort.Slice(bals, func(i, j int) bool { return bals[i].Account < bals[j].Account })

	default:
		accountID, err := database.ToAccountID(acct)
		if err != nil {
			return errs.NewTrusted(err, http.StatusBadRequest)
		}
		bals = append(bals, balance{Account: accountID, Balance: h.Chain.BalanceOf(accountID)})
	}

	resp := balances{
		LatestBlock: h.Chain.HeadBlock().Hash(),
		Height:      h.Chain.Height(),
		Balances:    bals,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}
