// Package uploadguard valida o tamanho de um upload antes de o handler consumi-lo.
//
// O corpo é lido no máximo até limite+1 bytes. Se couber, o stream original é
// devolvido intacto: reposicionado quando é um io.Seeker, ou com o prefixo lido
// recolocado na frente do restante.
package uploadguard

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Category é um tipo de upload com seu limite de tamanho. Não muda em runtime.
type Category struct {
	Name     string
	MaxBytes int64
	// Human é o limite como aparece na mensagem de erro ("20MB").
	Human string
}

var (
	Image = Category{Name: "image", MaxBytes: 20 << 20, Human: "20MB"}
	Audio = Category{Name: "audio", MaxBytes: 50 << 20, Human: "50MB"}
)

// ErrTooLarge é o sentinela de TooLargeError para uso com errors.Is.
var ErrTooLarge = errors.New("upload too large")

// TooLargeError indica que o upload passou do limite da categoria.
type TooLargeError struct {
	Category Category
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("File too large. Maximum size is %s.", e.Category.Human)
}

func (e *TooLargeError) Is(target error) bool { return target == ErrTooLarge }

func (e *TooLargeError) HTTPStatus() int { return http.StatusRequestEntityTooLarge }

// Validate garante que r tem no máximo c.MaxBytes bytes.
//
// Em caso de sucesso, o leitor retornado produz exatamente os mesmos bytes que r
// produziria sem a validação.
func Validate(r io.Reader, c Category) (io.Reader, error) {
	if s, ok := r.(io.Seeker); ok {
		return validateSeeker(r, s, c)
	}

	buf, err := io.ReadAll(io.LimitReader(r, c.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s upload: %w", c.Name, err)
	}
	if int64(len(buf)) > c.MaxBytes {
		return nil, &TooLargeError{Category: c}
	}
	return io.MultiReader(bytes.NewReader(buf), r), nil
}

func validateSeeker(r io.Reader, s io.Seeker, c Category) (io.Reader, error) {
	start, err := s.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("seek %s upload: %w", c.Name, err)
	}

	n, err := io.Copy(io.Discard, io.LimitReader(r, c.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s upload: %w", c.Name, err)
	}
	if n > c.MaxBytes {
		return nil, &TooLargeError{Category: c}
	}

	if _, err := s.Seek(start, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind %s upload: %w", c.Name, err)
	}
	return r, nil
}
