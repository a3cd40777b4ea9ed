package apitest

import (
	"net/http"

	"go.uber.org/zap"
)

type rwWrapper struct {
	rw         http.ResponseWriter
	statusCode int
	closed     bool
}

func newRwWrapper(rw http.ResponseWriter) *rwWrapper {
	return &rwWrapper{
		rw:         rw,
		statusCode: http.StatusOK,
	}
}

func (r *rwWrapper) Header() http.Header {
	return r.rw.Header()
}

func (r *rwWrapper) Write(i []byte) (int, error) {
	return r.rw.Write(i)
}

func (r *rwWrapper) WriteHeader(statusCode int) {
	if r.closed {
		return
	}
	r.closed = true
	r.rw.WriteHeader(statusCode)
	r.statusCode = statusCode
}

// accessLog records every request on the server and logs it.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rww := newRwWrapper(w)
		defer func() {
			s.record(r.URL.Path)
			s.logger.Named("accessLog").Debug("access to server",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("userAgent", r.UserAgent()),
				zap.Int("statusCode", rww.statusCode),
			)
		}()
		next.ServeHTTP(rww, r)
	})
}
