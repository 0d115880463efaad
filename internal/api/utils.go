package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"studio-backend/internal/api/middleware"
	"studio-backend/internal/apperror"
	"studio-backend/internal/logger"
	"studio-backend/internal/queue"

	"go.uber.org/zap"
)

type apiFunc func(http.ResponseWriter, *http.Request) error

func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.ErrorLog != nil {
			log.Debug("request rejected", zap.Error(httpErr.ErrorLog))
		}
		_ = WriteJSON(w, httpErr.StatusCode, apperror.ErrorBody{Error: httpErr.Message, Code: httpErr.code()})
		return
	}

	if apperror.CodeOf(err) == apperror.CodeInternal {
		log.Error("request failed", zap.Error(err))
	}
	middleware.WriteError(w, err)
}

// MakeHTTPHandleFunc runs f on the worker pool behind CORS, access logging
// and the given auth middlewares, and renders any returned error.
func (s *APIServer) MakeHTTPHandleFunc(f apiFunc, authMiddleware ...middleware.Middleware) http.HandlerFunc {
	baseHandler := func(w http.ResponseWriter, r *http.Request) {
		errc := make(chan error, 1)

		job := queue.Job{
			Fn: func() error {
				return f(w, r)
			},
			Errc: errc,
		}

		s.requestQueueManager.EnqueueJob(job)

		if err := <-errc; err != nil {
			writeError(w, r, err)
		}
	}

	middlewares := []middleware.Middleware{
		middleware.CORS(s.cors),
		middleware.Logging(),
	}

	finalHandler := func(w http.ResponseWriter, r *http.Request) {
		if len(authMiddleware) > 0 {
			middleware.Chain(baseHandler, authMiddleware...)(w, r)
			return
		}
		baseHandler(w, r)
	}

	return middleware.Chain(finalHandler, middlewares...)
}
