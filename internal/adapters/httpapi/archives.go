package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"shipyard/pkg/sessiondoc"
)

func (h *Handler) archiveEnabled(w http.ResponseWriter) bool {
	if h.Archive == nil {
		writeError(w, http.StatusNotFound, "not_found", "archive not configured")
		return false
	}
	return true
}

func (h *Handler) handleListArchives(w http.ResponseWriter, r *http.Request) {
	if !h.archiveEnabled(w) {
		return
	}
	entries, err := h.Archive.List(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"archives": entries})
}

func (h *Handler) handleGetArchive(w http.ResponseWriter, r *http.Request) {
	if !h.archiveEnabled(w) {
		return
	}
	doc, _, err := h.Archive.Load(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		h.fail(w, err)
		return
	}
	writeDocument(w, doc)
}

// handleSaveArchive stores the request body when one is sent, otherwise the
// current session. Bodies must decode as session documents.
func (h *Handler) handleSaveArchive(w http.ResponseWriter, r *http.Request) {
	if !h.archiveEnabled(w) {
		return
	}
	overwrite, _ := strconv.ParseBool(r.URL.Query().Get("overwrite"))
	doc, ok := readDocument(w, r)
	if !ok {
		return
	}
	if len(doc) > 0 {
		if _, err := sessiondoc.Decode(doc, nil); err != nil {
			h.fail(w, err)
			return
		}
	} else {
		s, err := h.Service.Session(r.Context())
		if err != nil {
			h.fail(w, err)
			return
		}
		if doc, err = sessiondoc.Encode(s); err != nil {
			h.fail(w, err)
			return
		}
	}
	entry, err := h.Archive.Save(r.Context(), mux.Vars(r)["name"], doc, overwrite)
	if err != nil {
		h.fail(w, err)
		return
	}
	status := http.StatusCreated
	if overwrite {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]any{"archive": entry})
}

func (h *Handler) handleDeleteArchive(w http.ResponseWriter, r *http.Request) {
	if !h.archiveEnabled(w) {
		return
	}
	existed, err := h.Archive.Delete(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		h.fail(w, err)
		return
	}
	if !existed {
		writeError(w, http.StatusNotFound, "archive_not_found", "archive not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRestoreArchive(w http.ResponseWriter, r *http.Request) {
	if !h.archiveEnabled(w) {
		return
	}
	doc, _, err := h.Archive.Load(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		h.fail(w, err)
		return
	}
	res, err := h.Service.Import(r.Context(), doc)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeSession(w, r, res)
}
