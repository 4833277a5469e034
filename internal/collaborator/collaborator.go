// Package collaborator contém os clientes dos serviços externos de inferência.
//
// Para o gateway eles são caixas pretas: devolvem texto ou falham. Nenhuma
// chamada é repetida em caso de erro.
package collaborator

import (
	"context"
	"os"
)

// ChatCompleter envia um prompt a um LLM de chat e devolve a primeira resposta.
type ChatCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Transcriber converte um arquivo de áudio em texto. O nome do arquivo
// (extensão) serve de dica de formato para o serviço.
type Transcriber interface {
	Transcribe(ctx context.Context, f *os.File) (string, error)
}

// Captioner descreve uma imagem JPEG em uma frase.
type Captioner interface {
	Caption(ctx context.Context, jpeg []byte) (string, error)
}
