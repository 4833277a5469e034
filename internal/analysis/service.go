// Package analysis orquestra os colaboradores de cada rota: legenda ou
// transcrição primeiro, depois a análise do LLM sobre o texto obtido.
package analysis

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"analysis-gateway/internal/apierror"
	"analysis-gateway/internal/collaborator"
	"analysis-gateway/middleware/accesslog"

	"go.uber.org/zap"
)

const MaxTextLength = 10000

var errTextTooLong = apierror.PayloadTooLarge(fmt.Sprintf("Text too long. Maximum length is %d characters.", MaxTextLength))

type TextResult struct {
	Analysis string `json:"analysis"`
	Success  bool   `json:"success"`
}

type ImageResult struct {
	Caption  string `json:"caption"`
	Analysis string `json:"analysis"`
	Success  bool   `json:"success"`
}

type AudioResult struct {
	Transcript string `json:"transcript"`
	Analysis   string `json:"analysis"`
	Success    bool   `json:"success"`
}

type Service struct {
	Chat        collaborator.ChatCompleter
	Transcriber collaborator.Transcriber
	Captioner   collaborator.Captioner
	// TempDir recebe os áudios temporários. Vazio usa os.TempDir().
	TempDir string
	Logger  *zap.Logger
}

func (s *Service) log(ctx context.Context) *zap.Logger {
	return accesslog.Logger(ctx, s.Logger)
}

// AnalyzeText rejeita textos com mais de MaxTextLength caracteres (runas).
func (s *Service) AnalyzeText(ctx context.Context, text string) (TextResult, error) {
	if utf8.RuneCountInString(text) > MaxTextLength {
		return TextResult{}, errTextTooLong
	}

	out, err := s.Chat.Complete(ctx, textPrompt(text))
	if err != nil {
		return TextResult{}, err
	}
	return TextResult{Analysis: out, Success: true}, nil
}

// AnalyzeImage normaliza a imagem para JPEG, pede a legenda e analisa a legenda.
func (s *Service) AnalyzeImage(ctx context.Context, img io.Reader) (ImageResult, error) {
	jpg, err := ToJPEG(img)
	if err != nil {
		return ImageResult{}, err
	}

	caption, err := s.Captioner.Caption(ctx, jpg)
	if err != nil {
		return ImageResult{}, err
	}
	s.log(ctx).Debug("image captioned", zap.Int("jpeg_bytes", len(jpg)), zap.Int("caption_len", len(caption)))

	out, err := s.Chat.Complete(ctx, imagePrompt(caption))
	if err != nil {
		return ImageResult{}, err
	}
	return ImageResult{Caption: caption, Analysis: out, Success: true}, nil
}

// AnalyzeAudio grava o áudio num arquivo temporário com a extensão original,
// transcreve e analisa a transcrição. O arquivo é removido em qualquer saída.
func (s *Service) AnalyzeAudio(ctx context.Context, audio io.Reader, filename string) (AudioResult, error) {
	f, err := os.CreateTemp(s.TempDir, "audio-*"+audioExt(filename))
	if err != nil {
		return AudioResult{}, fmt.Errorf("create temp audio file: %w", err)
	}
	defer func() {
		_ = f.Close()
		if err := os.Remove(f.Name()); err != nil && !os.IsNotExist(err) {
			s.log(ctx).Warn("temp audio file not removed", zap.String("path", f.Name()), zap.Error(err))
		}
	}()

	if _, err := io.Copy(f, audio); err != nil {
		return AudioResult{}, fmt.Errorf("write temp audio file: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return AudioResult{}, fmt.Errorf("rewind temp audio file: %w", err)
	}

	transcript, err := s.Transcriber.Transcribe(ctx, f)
	if err != nil {
		return AudioResult{}, err
	}

	out, err := s.Chat.Complete(ctx, audioPrompt(transcript))
	if err != nil {
		return AudioResult{}, err
	}
	return AudioResult{Transcript: transcript, Analysis: out, Success: true}, nil
}

// audioExt devolve a extensão do nome enviado quando ela é curta e só tem
// letras e dígitos; qualquer outra coisa é descartada.
func audioExt(filename string) string {
	ext := filepath.Ext(filepath.Base(filename))
	if len(ext) < 2 || len(ext) > 8 {
		return ""
	}
	for _, r := range ext[1:] {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return ""
		}
	}
	return ext
}
