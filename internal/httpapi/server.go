// Package httpapi routes the four URL patterns of spec.md §6 to the query
// engine and renders PNG responses, mapping NotFound errors to 404 and
// everything else to 500.
package httpapi

import (
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/canvasdb/placeviewer/internal/apperr"
	"github.com/canvasdb/placeviewer/internal/dataset"
	"github.com/canvasdb/placeviewer/internal/pngenc"
	"github.com/canvasdb/placeviewer/internal/query"
	"github.com/canvasdb/placeviewer/internal/tilestore"
)

// cacheMaxAge is 31 days in seconds, matching the immutable-once-written
// nature of a placement log's query results.
const cacheMaxAge = 2678400

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "placeviewer_http_requests_total",
		Help: "HTTP requests by query shape and status.",
	}, []string{"shape", "status"})

	queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "placeviewer_query_duration_seconds",
		Help:    "Query engine latency by dataset.",
		Buckets: prometheus.DefBuckets,
	}, []string{"dataset"})
)

// Server serves the image endpoints and /metrics over a dataset registry.
type Server struct {
	reg *dataset.Registry
	mux *http.ServeMux
}

// NewServer builds a Server routing requests against reg.
func NewServer(reg *dataset.Registry) *Server {
	s := &Server{reg: reg, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /images/{name}/tiles/{x}/{y}/ts/{file}", s.handleQ1)
	s.mux.HandleFunc("GET /images/{name}/tiles/{x}/{y}/diff-ts/{file}", s.handleQ2)
	s.mux.HandleFunc("GET /images/{name}/tiles/{x}/{y}/uid/{file}", s.handleQ3)
	s.mux.HandleFunc("GET /images/{name}/tiles/{x}/{y}/uid-rem/{file}", s.handleUIDRem)
	s.mux.Handle("GET /metrics", promhttp.Handler())
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// resolveTile looks up the dataset and tile named by the request's path
// values, returning an apperr.NotFound error if either is missing.
func (s *Server) resolveTile(r *http.Request) (*dataset.Dataset, *tileHandle, error) {
	name := r.PathValue("name")
	ds, ok := s.reg.Get(name)
	if !ok {
		return nil, nil, apperr.NotFound("unknown dataset %q", name)
	}

	x, err := strconv.Atoi(r.PathValue("x"))
	if err != nil {
		return ds, nil, apperr.NotFound("bad tile x %q", r.PathValue("x"))
	}
	y, err := strconv.Atoi(r.PathValue("y"))
	if err != nil {
		return ds, nil, apperr.NotFound("bad tile y %q", r.PathValue("y"))
	}
	t := ds.GetTile(x, y)
	if t == nil {
		return ds, nil, apperr.NotFound("tile (%d,%d) out of range", x, y)
	}
	return ds, &tileHandle{t}, nil
}

func (s *Server) handleQ1(w http.ResponseWriter, r *http.Request) {
	ds, th, err := s.resolveTile(r)
	if err != nil {
		s.writeError(w, "q1", err)
		return
	}
	ts, ok := parseSuffixUint(r.PathValue("file"), ".png")
	if !ok {
		s.writeError(w, "q1", apperr.NotFound("bad timestamp in %q", r.PathValue("file")))
		return
	}

	start := time.Now()
	frame, err := query.ImageAtTimestamp(th.t, ts)
	queryDuration.WithLabelValues(ds.Name).Observe(time.Since(start).Seconds())
	if err != nil {
		s.writeError(w, "q1", err)
		return
	}
	defer frame.Release()
	s.writeFrame(w, "q1", ds, frame)
}

func (s *Server) handleQ2(w http.ResponseWriter, r *http.Request) {
	ds, th, err := s.resolveTile(r)
	if err != nil {
		s.writeError(w, "q2", err)
		return
	}
	t1, t2, ok := parsePair(r.PathValue("file"))
	if !ok {
		s.writeError(w, "q2", apperr.NotFound("bad timestamp pair in %q", r.PathValue("file")))
		return
	}

	start := time.Now()
	frame, err := query.DiffForTimestamps(th.t, t1, t2)
	queryDuration.WithLabelValues(ds.Name).Observe(time.Since(start).Seconds())
	if err != nil {
		s.writeError(w, "q2", err)
		return
	}
	defer frame.Release()
	s.writeFrame(w, "q2", ds, frame)
}

func (s *Server) handleQ3(w http.ResponseWriter, r *http.Request) {
	ds, th, err := s.resolveTile(r)
	if err != nil {
		s.writeError(w, "q3", err)
		return
	}
	uid, ok := parseSuffixUint(r.PathValue("file"), ".png")
	if !ok {
		s.writeError(w, "q3", apperr.NotFound("bad uid in %q", r.PathValue("file")))
		return
	}

	start := time.Now()
	frame, err := query.ImageForUser(th.t, uint32(uid))
	queryDuration.WithLabelValues(ds.Name).Observe(time.Since(start).Seconds())
	if err != nil {
		s.writeError(w, "q3", err)
		return
	}
	defer frame.Release()
	s.writeFrame(w, "q3", ds, frame)
}

func (s *Server) handleUIDRem(w http.ResponseWriter, r *http.Request) {
	ds, th, err := s.resolveTile(r)
	if err != nil {
		s.writeError(w, "uid-rem", err)
		return
	}
	uid, ts, ok := parsePair(r.PathValue("file"))
	if !ok {
		s.writeError(w, "uid-rem", apperr.NotFound("bad uid/timestamp pair in %q", r.PathValue("file")))
		return
	}

	start := time.Now()
	frame, err := query.ImageAtTimestamp(th.t, ts)
	queryDuration.WithLabelValues(ds.Name).Observe(time.Since(start).Seconds())
	if err != nil {
		s.writeError(w, "uid-rem", err)
		return
	}
	masked := query.MaskUser(frame, uint32(uid))
	defer masked.Release()
	s.writeFrame(w, "uid-rem", ds, masked)
}

func (s *Server) writeFrame(w http.ResponseWriter, shape string, ds *dataset.Dataset, frame query.Frame) {
	data, err := pngenc.Encode(frame.Cells, frame.Size, ds.Palette, ds.TrnsPalette)
	if err != nil {
		log.Printf("httpapi: encoding png for dataset %q: %v", ds.Name, err)
		requestsTotal.WithLabelValues(shape, "500").Inc()
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("content-type", "image/png")
	w.Header().Set("cache-control", "max-age="+strconv.Itoa(cacheMaxAge))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
	requestsTotal.WithLabelValues(shape, "200").Inc()
}

func (s *Server) writeError(w http.ResponseWriter, shape string, err error) {
	status := http.StatusInternalServerError
	if apperr.Is(err, apperr.KindNotFound) {
		status = http.StatusNotFound
	} else {
		log.Printf("httpapi: %s: %v", shape, err)
	}
	requestsTotal.WithLabelValues(shape, strconv.Itoa(status)).Inc()
	http.Error(w, err.Error(), status)
}

type tileHandle struct {
	t *tilestore.Tile
}

// parseSuffixUint parses "{n}{suffix}" into n.
func parseSuffixUint(s, suffix string) (uint64, bool) {
	s, ok := strings.CutSuffix(s, suffix)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseUint(s, 10, 64)
	return n, err == nil
}

// parsePair parses "{a}_{b}.png" into (a, b).
func parsePair(s string) (uint64, uint64, bool) {
	s, ok := strings.CutSuffix(s, ".png")
	if !ok {
		return 0, 0, false
	}
	parts := strings.SplitN(s, "_", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	a, err1 := strconv.ParseUint(parts[0], 10, 64)
	b, err2 := strconv.ParseUint(parts[1], 10, 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return a, b, true
}
