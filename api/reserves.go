package api

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/chaincashlabs/chaincash/boxes"
)

type mintReserveRequest struct {
	PublicKeyHex string `json:"public_key_hex"`
	Amount       uint64 `json:"amount"`
}

type mintReserveResponse struct {
	TxID         string `json:"txId"`
	ReserveNftID string `json:"reserveNftId"`
}

func (s *Server) handleMintReserve(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req mintReserveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	issuer, err := parsePubkeyHex("public_key_hex", req.PublicKeyHex)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx := r.Context()
	txctx, err := s.currentTxContext(ctx)
	if err != nil {
		writeError(w, err)
		return
	}

	reserve, submitted, err := s.Builder.MintReserve(ctx, issuer, req.Amount, txctx)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, mintReserveResponse{
		TxID:         hex.EncodeToString(submitted.TxID[:]),
		ReserveNftID: hex.EncodeToString(reserve.Identifier[:]),
	})
}

type topUpReserveRequest struct {
	ReserveID   string `json:"reserve_id"`
	TopUpAmount uint64 `json:"top_up_amount"`
}

type topUpReserveResponse struct {
	TxID string `json:"txId"`
}

func (s *Server) handleTopUpReserve(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req topUpReserveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	identifier, err := parseTokenIDHex("reserve_id", req.ReserveID)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx := r.Context()
	reserve, err := s.loadLiveReserve(ctx, identifier)
	if err != nil {
		writeError(w, err)
		return
	}

	txctx, err := s.currentTxContext(ctx)
	if err != nil {
		writeError(w, err)
		return
	}

	_, submitted, err := s.Builder.TopUpReserve(ctx, reserve, req.TopUpAmount, txctx)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, topUpReserveResponse{TxID: hex.EncodeToString(submitted.TxID[:])})
}

type reserveResponse struct {
	ReserveID    string `json:"reserveId"`
	Owner        string `json:"owner"`
	Value        uint64 `json:"value"`
	RefundHeight *int64 `json:"refundHeight,omitempty"`
}

func (s *Server) handleListReserves(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	pubkeys, err := s.Wallet.WalletPubkeys(ctx)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]reserveResponse, 0)
	for _, pub := range pubkeys {
		rows, err := s.Store.ListReservesByPubkey(ctx, pub)
		if err != nil {
			writeError(w, err)
			return
		}
		for _, row := range rows {
			out = append(out, reserveResponse{
				ReserveID:    hex.EncodeToString(row.Identifier[:]),
				Owner:        hex.EncodeToString(row.Owner.SerializeCompressed()),
				Value:        row.Value,
				RefundHeight: row.RefundHeight,
			})
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// loadLiveReserve looks up the persisted reserve row by identifier, then
// re-fetches its current box from the ledger — the store's reconciliation
// happens on a one-second poll, so the box handed to the builder must be
// re-read fresh rather than trusted from the row alone.
func (s *Server) loadLiveReserve(ctx context.Context, identifier boxes.TokenID) (*boxes.ReserveBoxSpec, error) {
	row, err := s.Store.GetReserveByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, badRequest(fmt.Sprintf("reserve %x not found", identifier[:]))
	}
	box, err := s.Boxes.GetBox(ctx, row.BoxID)
	if err != nil {
		return nil, err
	}
	return boxes.NewReserveBoxSpec(box)
}
