package server

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/merkle"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/prooflist"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"Unknown list", errListNotFound, http.StatusNotFound, "not_found"},
		{"Bad name", prooflist.ErrInvalidListName, http.StatusBadRequest, "invalid_list_name"},
		{"Deleted handle", fmt.Errorf("%w: a", prooflist.ErrListDeleted), http.StatusConflict, "list_deleted"},
		{"Corrupted", fmt.Errorf("wrapped: %w", prooflist.ErrCorrupted), http.StatusInternalServerError, "corrupted"},
		{"Missing node", merkle.ErrMissingNode, http.StatusUnprocessableEntity, merkle.ErrorKind(merkle.ErrMissingNode)},
		{"Other", fmt.Errorf("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, kind := statusFor(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantKind, kind)
		})
	}
}
