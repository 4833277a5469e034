// mockupstream sobe colaboradores falsos para testar o gateway localmente:
//
//	POST /openai/v1/chat/completions       (compatível com OpenAI/Groq)
//	POST /openai/v1/audio/transcriptions   (compatível com OpenAI/Groq)
//	POST /caption                          (formato da Inference API do Hugging Face)
//
// Ex.: GROQ_BASE_URL=http://localhost:8081/openai/v1/ CAPTION_URL=http://localhost:8081/caption
//
// MOCK_FAIL_CAPTION=503 força o status da legenda, MOCK_DELAY simula latência.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	log, _ := zap.NewDevelopment()
	defer func() { _ = log.Sync() }()

	addr := getenvDefault("LISTEN_ADDR", ":8081")
	delay, _ := time.ParseDuration(os.Getenv("MOCK_DELAY"))
	failCaption, _ := strconv.Atoi(os.Getenv("MOCK_FAIL_CAPTION"))

	srv := &http.Server{
		Addr:              addr,
		Handler:           newRouter(log, delay, failCaption),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("mock upstream listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server error", zap.Error(err))
	}
}

func newRouter(log *zap.Logger, delay time.Duration, failCaption int) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Info("mock request", zap.String("method", r.Method), zap.String("path", r.URL.Path))
			if delay > 0 {
				select {
				case <-time.After(delay):
				case <-r.Context().Done():
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Post("/openai/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]string{"message": err.Error()}})
			return
		}
		promptLen := 0
		if len(req.Messages) > 0 {
			promptLen = len(req.Messages[0].Content)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":      "chatcmpl-mock",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]string{
					"role":    "assistant",
					"content": fmt.Sprintf("mock analysis of a %d-byte prompt\nPriority level: Low", promptLen),
				},
			}},
		})
	})

	r.Post("/openai/v1/audio/transcriptions", func(w http.ResponseWriter, r *http.Request) {
		file, hdr, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]string{"message": err.Error()}})
			return
		}
		defer file.Close()
		n, _ := io.Copy(io.Discard, file)
		writeJSON(w, http.StatusOK, map[string]string{
			"text": fmt.Sprintf("mock transcript of %s (%d bytes)", hdr.Filename, n),
		})
	})

	r.Post("/caption", func(w http.ResponseWriter, r *http.Request) {
		if failCaption >= 400 {
			w.WriteHeader(failCaption)
			_, _ = io.WriteString(w, `{"error":"Model Salesforce/blip-image-captioning-base is currently loading"}`)
			return
		}
		n, _ := io.Copy(io.Discard, r.Body)
		writeJSON(w, http.StatusOK, []map[string]string{
			{"generated_text": fmt.Sprintf("a mock scene (%d bytes of jpeg)", n)},
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
