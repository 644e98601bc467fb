package bridge

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/celerway/gaugeboard/adapter/chart"
	"github.com/gorilla/mux"
)

type chartList struct {
	Charts []string `json:"charts"`
}

type apiError struct {
	Error string `json:"error"`
}

// routes mounts the chart API next to /metrics and /healthz.
func (br *bridge) routes(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/charts", br.listHandler).Methods(http.MethodGet)
	api.HandleFunc("/charts/{id}", br.getHandler).Methods(http.MethodGet)
	api.HandleFunc("/charts/{id}", br.renderHandler).Methods(http.MethodPost)
}

func (br *bridge) listHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, chartList{Charts: br.host.IDs()})
}

func (br *bridge) getHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	snap, ok := br.host.Snapshot(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, apiError{Error: "no chart " + id})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// renderHandler renders a raw chart request onto an element on the page.
// ?update=true updates the existing chart in place.
func (br *bridge) renderHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	isUpdate := false
	if v := r.URL.Query().Get("update"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, apiError{Error: "bad update flag: " + v})
			return
		}
		isUpdate = b
	}
	var req chart.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}
	req.ID = id
	if _, ok := br.page.ElementByID(id); !ok {
		writeJSON(w, http.StatusNotFound, apiError{Error: "no element " + id})
		return
	}
	if err := br.submit(r.Context(), req, isUpdate); err != nil {
		writeJSON(w, http.StatusInternalServerError, apiError{Error: err.Error()})
		return
	}
	snap, _ := br.host.Snapshot(id)
	writeJSON(w, http.StatusOK, snap)
}

// writeJSON encodes v before writing the header. Encoding failures answer 500.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		buf.Reset()
		_ = json.NewEncoder(&buf).Encode(apiError{Error: "encoding response: " + err.Error()})
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
