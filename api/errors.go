package api

import (
	"errors"
	"net/http"

	"github.com/chaincashlabs/chaincash/acceptance"
	"github.com/chaincashlabs/chaincash/avltree"
	"github.com/chaincashlabs/chaincash/boxes"
	"github.com/chaincashlabs/chaincash/crypto/schnorr"
	"github.com/chaincashlabs/chaincash/notehistory"
	"github.com/chaincashlabs/chaincash/scanner"
	"github.com/chaincashlabs/chaincash/txbuilder"
)

// ErrorResponse is the JSON body every failing request returns (spec.md
// §6: `{ "error": { "detail": "<msg>" } }`).
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Detail string `json:"detail"`
}

// errBadRequest marks a handler-local input error (malformed hex, missing
// field) that maps to 400 without needing a typed core error.
type errBadRequest struct{ detail string }

func (e *errBadRequest) Error() string { return e.detail }

func badRequest(detail string) error { return &errBadRequest{detail: detail} }

// Translate maps an error surfaced from any core package to the HTTP
// status spec.md §7's taxonomy assigns it: box-parsing, history, and
// transaction-composition errors are caller mistakes (400); node, store,
// and scanner failures are server-side (500); anything untyped defaults to
// 500, since an unrecognized failure is safer treated as our bug than the
// caller's.
func Translate(err error) (int, ErrorResponse) {
	body := ErrorResponse{Error: ErrorDetail{Detail: err.Error()}}

	var badReq *errBadRequest
	if errors.As(err, &badReq) {
		return http.StatusBadRequest, body
	}

	// box parsing
	var fieldNotSet *boxes.ErrFieldNotSet
	var invalidType *boxes.ErrInvalidType
	var invalidField *boxes.ErrInvalidField
	var invalidAVLDigest *boxes.ErrInvalidAVLDigest
	if errors.As(err, &fieldNotSet) || errors.As(err, &invalidType) ||
		errors.As(err, &invalidField) || errors.As(err, &invalidAVLDigest) {
		return http.StatusBadRequest, body
	}

	// history / signature
	var invalidPrivateKey *schnorr.ErrInvalidPrivateKey
	var duplicateReserveKey *notehistory.ErrDuplicateReserveKey
	var proofMismatch *avltree.ErrProofMismatch
	if errors.As(err, &invalidPrivateKey) || errors.As(err, &duplicateReserveKey) || errors.As(err, &proofMismatch) {
		return http.StatusBadRequest, body
	}

	// transaction composition
	var changeAddr *txbuilder.ErrChangeAddress
	var boxValue *txbuilder.ErrBoxValue
	var tokenValue *txbuilder.ErrTokenValue
	var missingBox *txbuilder.ErrMissingBox
	var boxBuilder *txbuilder.ErrBoxBuilder
	var boxSelection *txbuilder.ErrBoxSelection
	var txBuilderErr *txbuilder.ErrTxBuilder
	var addrErr *txbuilder.ErrAddress
	var parsing *txbuilder.ErrParsing
	var noteAmount *txbuilder.ErrNoteAmount
	var topUpAmount *txbuilder.ErrTopUpAmount
	var reserveEntryNotFound *txbuilder.ErrReserveEntryNotFound
	switch {
	case errors.As(err, &changeAddr), errors.As(err, &boxValue), errors.As(err, &tokenValue),
		errors.As(err, &missingBox), errors.As(err, &boxBuilder), errors.As(err, &boxSelection),
		errors.As(err, &addrErr), errors.As(err, &parsing), errors.As(err, &noteAmount),
		errors.As(err, &topUpAmount), errors.As(err, &reserveEntryNotFound):
		return http.StatusBadRequest, body
	case errors.As(err, &txBuilderErr):
		return http.StatusInternalServerError, body
	}

	// acceptance predicates
	var unknownPredicateType *acceptance.ErrUnknownPredicateType
	var unknownWhitelistKind *acceptance.ErrUnknownWhitelistKind
	if errors.As(err, &unknownPredicateType) || errors.As(err, &unknownWhitelistKind) {
		return http.StatusBadRequest, body
	}

	// scanner / node / store
	var invalidTransaction *scanner.ErrInvalidTransaction
	var invalidReserveBox *scanner.ErrInvalidReserveBox
	var invalidContextExtension *scanner.ErrInvalidContextExtension
	if errors.As(err, &invalidTransaction) || errors.As(err, &invalidReserveBox) || errors.As(err, &invalidContextExtension) {
		return http.StatusInternalServerError, body
	}

	return http.StatusInternalServerError, body
}
