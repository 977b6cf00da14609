package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/leapcalc/internal/engine"
	"github.com/leapstack-labs/leapcalc/pkg/core"
	"github.com/leapstack-labs/leapcalc/pkg/formula"
	"github.com/leapstack-labs/leapcalc/pkg/links"
)

type expressionRequest struct {
	Expression string                `json:"expression"`
	Module     string                `json:"module,omitempty"`
	Values     map[string]core.Value `json:"values,omitempty"`
}

type evaluateResponse struct {
	Value *float64     `json:"value,omitempty"`
	Error string       `json:"error,omitempty"`
	Kind  formula.Kind `json:"kind,omitempty"`
}

type linkCheckRequest struct {
	Quote  string `json:"quote"`
	Source string `json:"source"`
	Target string `json:"target"`
}

type moduleSummary struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Formula string   `json:"formula"`
	Fields  []string `json:"fields"`
	Outputs []string `json:"outputs,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid request body: " + err.Error())
	}
	return nil
}

// lookupStatus maps engine lookup failures to 404.
func lookupStatus(err error) int {
	if errors.Is(err, engine.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (s *Server) handleModules(w http.ResponseWriter, _ *http.Request) {
	mods := s.engine.Modules()
	out := make([]moduleSummary, 0, len(mods))
	for _, m := range mods {
		sum := moduleSummary{ID: m.ID, Name: m.Name, Formula: m.Formula, Fields: []string{}}
		for _, f := range m.Fields {
			sum.Fields = append(sum.Fields, f.VariableName)
		}
		for _, o := range m.ComputedOutputs {
			sum.Outputs = append(sum.Outputs, o.VariableName)
		}
		out = append(out, sum)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req expressionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Module != "" {
		if _, err := s.engine.Module(req.Module); err != nil {
			writeError(w, lookupStatus(err), err)
			return
		}
	}

	v, err := s.engine.Evaluate(req.Expression, req.Module, req.Values)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, evaluateResponse{Error: err.Error(), Kind: formula.KindOf(err)})
		return
	}
	writeJSON(w, http.StatusOK, evaluateResponse{Value: &v})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req expressionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	known := make([]string, 0, len(req.Values))
	for name := range req.Values {
		known = append(known, name)
	}
	res, err := s.engine.Validate(req.Expression, req.Module, known...)
	if err != nil {
		writeError(w, lookupStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req expressionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	an, err := s.engine.Analyze(req.Expression, req.Module)
	if err != nil {
		writeError(w, lookupStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, an)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := s.engine.EvaluateQuote(r.Context(), id)
	if err != nil {
		writeError(w, lookupStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleLinkCheck(w http.ResponseWriter, r *http.Request) {
	var req linkCheckRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	source, err := links.ParseEndpoint(req.Source)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	target, err := links.ParseEndpoint(req.Target)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := s.engine.CanLink(req.Quote, source, target)
	if err != nil {
		writeError(w, lookupStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSelectQuote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quote string `json:"quote"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if _, err := s.engine.Quote(req.Quote); err != nil {
		writeError(w, lookupStatus(err), err)
		return
	}

	session, _ := s.sessionStore.Get(r, sessionName)
	session.Values[sessionQuoteKey] = req.Quote
	if err := session.Save(r, w); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"quote": req.Quote})
}

// selectedQuote returns the quote named by the "quote" query parameter or
// remembered in the session.
func (s *Server) selectedQuote(r *http.Request) string {
	if q := r.URL.Query().Get("quote"); q != "" {
		return q
	}
	session, err := s.sessionStore.Get(r, sessionName)
	if err != nil {
		return ""
	}
	id, _ := session.Values[sessionQuoteKey].(string)
	return id
}
