// Package server serves the ouisniff status API.
package server

import (
	"net/http"

	"github.com/some-programs/ouisniff/internal/log"
)

// AppHandler is a handler func that may return an error. If nothing has been
// written yet the error becomes a 500 response, otherwise it is only logged.
//
// Handlers that write their own error response should return nil.
type AppHandler func(http.ResponseWriter, *http.Request) error

func (fn AppHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rw := &responseWriter{ResponseWriter: w}
	if err := fn(rw, r); err != nil {
		if rw.hasWritten {
			log.FromRequest(r).Warn().Err(err).Msg("error returned to AppHandler after response has been written")
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// responseWriter tracks whether the response has been started.
type responseWriter struct {
	http.ResponseWriter
	hasWritten bool
}

func (r *responseWriter) WriteHeader(code int) {
	r.hasWritten = true
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseWriter) Write(b []byte) (int, error) {
	r.hasWritten = true
	return r.ResponseWriter.Write(b)
}

type maxBytesReaderMiddleware struct {
	h http.Handler
	N int64
}

func (b maxBytesReaderMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, b.N)
	b.h.ServeHTTP(w, r)
}

// MaxBytesReaderMiddleware limits request bodies to maxSize bytes.
func MaxBytesReaderMiddleware(maxSize int64) func(h http.Handler) http.Handler {
	if maxSize <= 0 {
		log.Fatal().Msgf("maxSize cannot be equal or less than 0: %v", maxSize)
	}
	return func(h http.Handler) http.Handler {
		return maxBytesReaderMiddleware{h: h, N: maxSize}
	}
}
