package api

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/chaincashlabs/chaincash/acceptance"
)

type acceptancePredicateResponse struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// describePredicate names a predicate's variant for the listing response.
// Predicate.Accept is the only required method, so a type switch over the
// concrete variants is the only way to report which kind is loaded.
func describePredicate(p acceptance.Predicate) string {
	switch p.(type) {
	case acceptance.Whitelist:
		return "whitelist"
	case acceptance.Blacklist:
		return "blacklist"
	case acceptance.Or:
		return "or"
	case acceptance.Collateral:
		return "collateral"
	default:
		return "unknown"
	}
}

func (s *Server) handleListAcceptance(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	out := make([]acceptancePredicateResponse, 0, len(s.Predicates))
	for _, entry := range s.Predicates {
		out = append(out, acceptancePredicateResponse{
			Name: entry.Name,
			Type: describePredicate(entry.Predicate),
		})
	}
	writeJSON(w, http.StatusOK, out)
}
