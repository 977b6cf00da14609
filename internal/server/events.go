package server

import (
	"context"
	"net/http"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/leapcalc/internal/server/notifier"
)

// quoteSignals is the signal payload pushed to the browser.
type quoteSignals struct {
	Quote      string  `json:"quote"`
	Total      float64 `json:"total"`
	Status     string  `json:"status,omitempty"`
	Lines      int     `json:"lines"`
	Failed     int     `json:"failed"`
	Generation uint64  `json:"generation"`
	Error      string  `json:"error,omitempty"`
}

// handleEvents streams the totals of the selected quote: once on connect and
// again after every workspace reload.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	quoteID := s.selectedQuote(r)
	if quoteID == "" {
		http.Error(w, "no quote selected", http.StatusBadRequest)
		return
	}

	updates := s.notifier.Subscribe()
	defer s.notifier.Unsubscribe(updates)

	sse := datastar.NewSSE(w, r)
	ctx := r.Context()

	if err := sse.MarshalAndPatchSignals(s.quoteSignals(ctx, quoteID, notifier.Event{})); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-updates:
			if !ok {
				return
			}
			if err := sse.MarshalAndPatchSignals(s.quoteSignals(ctx, quoteID, ev)); err != nil {
				_ = sse.ConsoleError(err)
				return
			}
		}
	}
}

func (s *Server) quoteSignals(ctx context.Context, quoteID string, ev notifier.Event) quoteSignals {
	sig := quoteSignals{Quote: quoteID, Generation: ev.Generation}
	if ev.Err != nil {
		sig.Error = ev.Err.Error()
	}
	res, err := s.engine.PreviewQuote(ctx, quoteID)
	if err != nil {
		sig.Error = err.Error()
		return sig
	}
	sig.Total = res.Total
	sig.Status = string(res.Status)
	sig.Lines = len(res.Lines)
	sig.Failed = len(res.Failed())
	return sig
}
