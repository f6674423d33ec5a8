package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/okravchuk/contacts-api/internal/pkg/reqid"
)

const HeaderXRequestID = "X-Request-Id"

func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderXRequestID)
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set(HeaderXRequestID, id)

		next.ServeHTTP(w, r.WithContext(reqid.WithRequestID(r.Context(), id)))
	})
}
