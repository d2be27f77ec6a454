package api

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

type healthcheckResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealthcheck(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, healthcheckResponse{Status: "ok"})
}
