package apierror

import (
	"encoding/json"
	"errors"
	"net/http"

	"analysis-gateway/middleware/accesslog"

	"go.uber.org/zap"
)

type detailBody struct {
	Detail string `json:"detail"`
}

// WriteJSON escreve v como JSON com o status informado.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Write traduz err para {"detail": ...} e anota o resultado para o access log.
func Write(w http.ResponseWriter, r *http.Request, stage string, err error) {
	status, detail := Classify(err)
	accesslog.Annotate(r.Context(), stage, detail)
	WriteJSON(w, status, detailBody{Detail: detail})
}

// HandlerFunc é um handler que devolve erro; o erro vira a resposta uniforme.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

func (h HandlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h(w, r); err != nil {
		Write(w, r, "handler", err)
	}
}

// Recoverer converte panics em 500 no formato uniforme.
func Recoverer(log *zap.Logger) func(next http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := accesslog.NewRecorder(w)
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}
				accesslog.Logger(r.Context(), log).Error("panic in handler", zap.Any("panic", v), zap.Stack("stack"))
				if !rec.Written() {
					Write(rec, r, "panic", Internal(errors.New("internal server error")))
				}
			}()
			next.ServeHTTP(rec, r)
		})
	}
}
