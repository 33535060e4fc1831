package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/merkle"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/prooflist"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/types"
)

// handleHealth reports whether the store is reachable
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.HealthCheck(); err != nil {
		s.logger.Sugar().Errorw("Health check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, err.Error(), "unhealthy")
		return
	}
	writeJSON(w, http.StatusOK, types.HealthResponse{Status: "ok", Hasher: s.group.Hasher().Name()})
}

// handleListNames returns the names of all stored lists
func (s *Server) handleListNames(w http.ResponseWriter, r *http.Request) {
	names, err := s.group.Names()
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, types.ListNamesResponse{Lists: names})
}

// handleListInfo returns the authenticated state of a list
func (s *Server) handleListInfo(w http.ResponseWriter, r *http.Request) {
	l, err := s.existingList(r.PathValue("name"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	info, err := l.Info()
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.ListInfoResponse{
		Name:       info.Name,
		Length:     info.Length,
		Height:     info.Height,
		MerkleRoot: info.MerkleRoot,
		ListHash:   info.ListHash,
		Hasher:     info.Hasher,
	})
}

// handleDeleteList drops a list and all of its node hashes
func (s *Server) handleDeleteList(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if _, err := s.existingList(name); err != nil {
		s.handleError(w, r, err)
		return
	}
	if err := s.group.Delete(name); err != nil {
		s.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAppend appends values to a list, creating it on first use
func (s *Server) handleAppend(w http.ResponseWriter, r *http.Request) {
	var req types.AppendRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Failed to parse request: %v", err), "bad_request")
		return
	}
	if len(req.Values) == 0 {
		writeError(w, http.StatusBadRequest, "values is required", "bad_request")
		return
	}

	l, err := s.group.Get(r.PathValue("name"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	values := make([][]byte, len(req.Values))
	for i, v := range req.Values {
		values[i] = v
	}

	first, err := l.Extend(values)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	info, err := l.Info()
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.logger.Sugar().Infow("Appended entries",
		"list", l.Name(),
		"first_index", first,
		"count", len(values),
		"length", info.Length)

	writeJSON(w, http.StatusOK, types.AppendResponse{
		FirstIndex: first,
		Length:     info.Length,
		ListHash:   info.ListHash,
	})
}

// handleGetEntry returns a single element of a list
func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.ParseUint(r.PathValue("index"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid index: %v", err), "bad_request")
		return
	}

	l, err := s.existingList(r.PathValue("name"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	value, err := l.Get(index)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.EntryResponse{Index: index, Value: value})
}

// handleGetProof builds a proof for a set of indices or a range
func (s *Server) handleGetProof(w http.ResponseWriter, r *http.Request) {
	query, err := s.parseProofQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "bad_request")
		return
	}

	l, err := s.existingList(r.PathValue("name"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	var proof *merkle.ListProof
	if query.isRange {
		proof, err = l.GetRangeProof(query.from, query.to)
	} else {
		proof, err = l.GetProof(query.indices...)
	}
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	if wantsProtobuf(r) {
		data, err := proof.MarshalBinary()
		if err != nil {
			s.handleError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", merkle.ContentTypeProtobuf)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}
	writeJSON(w, http.StatusOK, proof)
}

// handleVerify checks a proof against a list hash with the server's hasher
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req types.VerifyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Failed to parse request: %v", err), "bad_request")
		return
	}
	if req.Proof == nil {
		writeError(w, http.StatusBadRequest, "proof is required", "bad_request")
		return
	}

	entries, err := merkle.Verify(s.group.Hasher(), req.Proof, req.ExpectedHash)
	if err != nil {
		kind := merkle.ErrorKind(err)
		if kind == "" {
			s.handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusUnprocessableEntity, types.VerifyResponse{Error: err.Error(), Kind: kind})
		return
	}

	resp := types.VerifyResponse{Valid: true, Entries: make([]types.EntryResponse, 0, len(entries))}
	for index, value := range entries {
		resp.Entries = append(resp.Entries, types.EntryResponse{Index: index, Value: value})
	}
	sort.Slice(resp.Entries, func(i, j int) bool { return resp.Entries[i].Index < resp.Entries[j].Index })
	writeJSON(w, http.StatusOK, resp)
}

// existingList opens name, failing with errListNotFound if it was never written
func (s *Server) existingList(name string) (*prooflist.ProofList[[]byte], error) {
	exists, err := s.group.Exists(name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", errListNotFound, name)
	}
	return s.group.Get(name)
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Sugar().Errorw("Request failed",
			"request_id", w.Header().Get(RequestIDHeader),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
	}
	writeError(w, status, err.Error(), kind)
}

type proofQuery struct {
	indices  []uint64
	isRange  bool
	from, to uint64
}

func (s *Server) parseProofQuery(r *http.Request) (*proofQuery, error) {
	values := r.URL.Query()
	rawIndices := values["index"]
	rawFrom, rawTo := values.Get("from"), values.Get("to")

	if rawFrom != "" || rawTo != "" {
		if len(rawIndices) > 0 {
			return nil, fmt.Errorf("index cannot be combined with from and to")
		}
		if rawFrom == "" || rawTo == "" {
			return nil, fmt.Errorf("from and to must be given together")
		}
		from, err := strconv.ParseUint(rawFrom, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid from: %v", err)
		}
		to, err := strconv.ParseUint(rawTo, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid to: %v", err)
		}
		if to > from && to-from > uint64(s.maxProofIndices) {
			return nil, fmt.Errorf("range covers %d entries, at most %d allowed", to-from, s.maxProofIndices)
		}
		return &proofQuery{isRange: true, from: from, to: to}, nil
	}

	if len(rawIndices) > s.maxProofIndices {
		return nil, fmt.Errorf("%d indices requested, at most %d allowed", len(rawIndices), s.maxProofIndices)
	}
	indices := make([]uint64, 0, len(rawIndices))
	for _, raw := range rawIndices {
		index, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid index %q: %v", raw, err)
		}
		indices = append(indices, index)
	}
	return &proofQuery{indices: indices}, nil
}

func wantsProtobuf(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), merkle.ContentTypeProtobuf)
}
