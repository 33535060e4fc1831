package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/merkle"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/prooflist"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/types"
)

var errListNotFound = errors.New("list not found")

// statusFor maps an error to its HTTP status and kind
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errListNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, prooflist.ErrInvalidListName):
		return http.StatusBadRequest, "invalid_list_name"
	case errors.Is(err, merkle.ErrIndexOutOfRange), errors.Is(err, merkle.ErrInvalidRange):
		return http.StatusBadRequest, merkle.ErrorKind(err)
	case errors.Is(err, merkle.ErrMissingNode),
		errors.Is(err, merkle.ErrUnexpectedNode),
		errors.Is(err, merkle.ErrRootMismatch):
		return http.StatusUnprocessableEntity, merkle.ErrorKind(err)
	case errors.Is(err, prooflist.ErrListDeleted):
		return http.StatusConflict, "list_deleted"
	case errors.Is(err, prooflist.ErrCorrupted):
		return http.StatusInternalServerError, "corrupted"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeError(w http.ResponseWriter, status int, message, kind string) {
	writeJSON(w, status, types.ErrorResponse{Error: message, Kind: kind})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
