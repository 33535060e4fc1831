// Package types holds the JSON messages exchanged between the proof list
// server and its clients.
package types

import (
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/merkle"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status string `json:"status"`
	Hasher string `json:"hasher"`
}

// ListNamesResponse is returned by GET /lists
type ListNamesResponse struct {
	Lists []string `json:"lists"`
}

// ListInfoResponse is returned by GET /lists/{name}
type ListInfoResponse struct {
	Name       string      `json:"name"`
	Length     uint64      `json:"length"`
	Height     uint32      `json:"height"`
	MerkleRoot merkle.Hash `json:"merkle_root"`
	ListHash   merkle.Hash `json:"list_hash"`
	Hasher     string      `json:"hasher"`
}

// AppendRequest is the body of POST /lists/{name}/entries
type AppendRequest struct {
	Values []hexutil.Bytes `json:"values"`
}

// AppendResponse reports the state of a list after an append
type AppendResponse struct {
	FirstIndex uint64      `json:"first_index"`
	Length     uint64      `json:"length"`
	ListHash   merkle.Hash `json:"list_hash"`
}

// EntryResponse is returned by GET /lists/{name}/entries/{index}
type EntryResponse struct {
	Index uint64        `json:"index"`
	Value hexutil.Bytes `json:"value"`
}

// VerifyRequest is the body of POST /verify
type VerifyRequest struct {
	Proof        *merkle.ListProof `json:"proof"`
	ExpectedHash merkle.Hash       `json:"expected_hash"`
}

// VerifyResponse reports the outcome of a verification. Entries is set when
// Valid is true, Error and Kind otherwise.
type VerifyResponse struct {
	Valid   bool            `json:"valid"`
	Entries []EntryResponse `json:"entries,omitempty"`
	Error   string          `json:"error,omitempty"`
	Kind    string          `json:"kind,omitempty"`
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
