package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/snippetvault/internal/common"
)

func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			h.writeError(w, r, fmt.Errorf("%w: limit must be an integer", common.ErrValidation))
			return
		}
		limit = n
		if limit == 0 {
			h.writeError(w, r, fmt.Errorf("%w: limit must be positive", common.ErrValidation))
			return
		}
	}

	entries, err := h.Audit.ListForActor(r.Context(), userIDFrom(r.Context()), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}
