// Package server serves problem evaluation over HTTP.
//
//	POST /evaluate    value, gradient and Hessian of a problem's objective
//	POST /derivative  symbolic derivative of a problem's objective
//	GET  /health      liveness check
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	symdiff "github.com/njchilds90/symdiff"
	"github.com/njchilds90/symdiff/internal/config"
	"github.com/njchilds90/symdiff/internal/problem"
)

// EvaluateRequest asks for the objective of Problem at Point. An empty
// point means the problem's start point.
type EvaluateRequest struct {
	Problem  problem.Document   `json:"problem"`
	Point    map[string]float64 `json:"point,omitempty"`
	Gradient bool               `json:"gradient,omitempty"`
	Hessian  bool               `json:"hessian,omitempty"`
}

// DerivativeRequest asks for the derivative of the objective with respect
// to each variable of Wrt in turn.
type DerivativeRequest struct {
	Problem problem.Document `json:"problem"`
	Wrt     []string         `json:"wrt"`
}

// Response carries a result or an error. Derivatives also come rendered as
// text and LaTeX.
type Response struct {
	Result interface{} `json:"result,omitempty"`
	String string      `json:"string,omitempty"`
	LaTeX  string      `json:"latex,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// Server handles the endpoints.
type Server struct {
	cfg *config.Config
	log logrus.FieldLogger
	mux *http.ServeMux
}

// New returns a server for cfg.
func New(cfg *config.Config, log logrus.FieldLogger) *Server {
	s := &Server{cfg: cfg, log: log, mux: http.NewServeMux()}
	s.mux.HandleFunc("/evaluate", s.post(s.evaluate))
	s.mux.HandleFunc("/derivative", s.post(s.derivative))
	s.mux.HandleFunc("/health", s.health)
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	read, write, shutdown := s.cfg.Server.Timeouts()
	srv := &http.Server{
		Addr:              s.cfg.Server.Address,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       read,
		WriteTimeout:      write,
		IdleTimeout:       60 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Infof("symdiff server listening on %s", s.cfg.Server.Address)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	if shutdown <= 0 {
		shutdown = 5 * time.Second
	}
	sctx, cancel := context.WithTimeout(context.Background(), shutdown)
	defer cancel()
	s.log.Info("symdiff server shutting down")
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

type handler func(dec *json.Decoder) (Response, error)

// post decodes a JSON body strictly, recovers panics and writes the
// response. Handler errors are client errors.
func (s *Server) post(h handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := s.log.WithFields(logrus.Fields{"path": r.URL.Path, "remote": r.RemoteAddr})
		defer func() {
			if rec := recover(); rec != nil {
				log.Errorf("panic: %v\n%s", rec, debug.Stack())
				writeJSON(w, http.StatusInternalServerError, Response{Error: "internal server error"})
			}
		}()
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, Response{Error: "method not allowed"})
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes)
		defer r.Body.Close()

		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		start := time.Now()
		resp, err := h(dec)
		if err == nil && dec.More() {
			err = errors.New("invalid JSON: trailing data")
		}
		if err != nil {
			log.WithError(err).Debug("request rejected")
			writeJSON(w, http.StatusBadRequest, Response{Error: err.Error()})
			return
		}
		log.WithField("elapsed", time.Since(start)).Debug("request served")
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) evaluate(dec *json.Decoder) (Response, error) {
	var req EvaluateRequest
	if err := dec.Decode(&req); err != nil {
		return Response{}, errors.Wrap(err, "decode request")
	}
	p, err := problem.New(&req.Problem)
	if err != nil {
		return Response{}, err
	}
	pt := p.Start
	if len(req.Point) > 0 {
		if pt, err = p.Point(req.Point); err != nil {
			return Response{}, err
		}
	}
	ev, err := p.Evaluate(pt, problem.Query{
		Gradient: req.Gradient,
		Hessian:  req.Hessian,
		Compact:  s.cfg.Evaluator.Mode == config.ModeCompact,
	})
	if err != nil {
		return Response{}, err
	}
	return Response{Result: ev}, nil
}

func (s *Server) derivative(dec *json.Decoder) (Response, error) {
	var req DerivativeRequest
	if err := dec.Decode(&req); err != nil {
		return Response{}, errors.Wrap(err, "decode request")
	}
	p, err := problem.New(&req.Problem)
	if err != nil {
		return Response{}, err
	}
	vs := make([]*symdiff.Variable, len(req.Wrt))
	for i, name := range req.Wrt {
		v, ok := p.Variable(name)
		if !ok {
			return Response{}, errors.Errorf("unknown variable %q", name)
		}
		vs[i] = v
	}
	d, err := symdiff.TryDerivative(p.Objective, vs...)
	if err != nil {
		return Response{}, err
	}
	doc, err := symdiff.Encode(d)
	if err != nil {
		return Response{}, err
	}
	return Response{Result: doc, String: d.String(), LaTeX: symdiff.LaTeX(d)}, nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
