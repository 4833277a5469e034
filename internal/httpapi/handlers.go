package httpapi

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"analysis-gateway/internal/analysis"
	"analysis-gateway/internal/apierror"
	"analysis-gateway/middleware/uploadguard"
)

const (
	// folga para cabeçalhos multipart e campos extras além do arquivo
	multipartSlack = 1 << 20
	maxTextBody    = 1 << 20
)

type handlers struct {
	svc *analysis.Service
}

func fieldRequired(name string) error {
	return apierror.Unprocessable("Field required: " + name)
}

func (h *handlers) analyzeText(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxTextBody)
	if err := r.ParseMultipartForm(maxTextBody); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return err
	}

	values, ok := r.PostForm["text"]
	if !ok || len(values) == 0 {
		return fieldRequired("text")
	}

	res, err := h.svc.AnalyzeText(r.Context(), values[0])
	if err != nil {
		return err
	}
	apierror.WriteJSON(w, http.StatusOK, res)
	return nil
}

func (h *handlers) analyzeImage(w http.ResponseWriter, r *http.Request) error {
	part, err := filePart(w, r, uploadguard.Image)
	if err != nil {
		return err
	}
	defer part.Close()

	body, err := uploadguard.Validate(part, uploadguard.Image)
	if err != nil {
		return err
	}

	res, err := h.svc.AnalyzeImage(r.Context(), body)
	if err != nil {
		return err
	}
	apierror.WriteJSON(w, http.StatusOK, res)
	return nil
}

func (h *handlers) analyzeAudio(w http.ResponseWriter, r *http.Request) error {
	part, err := filePart(w, r, uploadguard.Audio)
	if err != nil {
		return err
	}
	defer part.Close()

	body, err := uploadguard.Validate(part, uploadguard.Audio)
	if err != nil {
		return err
	}

	res, err := h.svc.AnalyzeAudio(r.Context(), body, part.FileName())
	if err != nil {
		return err
	}
	apierror.WriteJSON(w, http.StatusOK, res)
	return nil
}

// filePart avança no corpo multipart até a parte "file" sem bufferizar as demais.
func filePart(w http.ResponseWriter, r *http.Request, c uploadguard.Category) (*multipart.Part, error) {
	r.Body = http.MaxBytesReader(w, r.Body, c.MaxBytes+multipartSlack)

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fieldRequired("file")
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, fieldRequired("file")
		}
		if err != nil {
			return nil, err
		}
		if part.FormName() == "file" && part.FileName() != "" {
			return part, nil
		}
		_ = part.Close()
	}
}
