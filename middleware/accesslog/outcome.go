package accesslog

import (
	"context"
	"sync"
)

type outcomeKey struct{}

// Outcome é o resultado de um request (status, detalhe, chave do cliente) que
// os estágios do pipeline vão preenchendo e o access log emite no final.
type Outcome struct {
	mu     sync.Mutex
	detail string
	client string
	stage  string
}

func withOutcome(ctx context.Context) (context.Context, *Outcome) {
	o := &Outcome{}
	return context.WithValue(ctx, outcomeKey{}, o), o
}

func outcomeFrom(ctx context.Context) *Outcome {
	o, _ := ctx.Value(outcomeKey{}).(*Outcome)
	return o
}

// Annotate registra a mensagem de detalhe do request (tipicamente o "detail" do erro)
// e o estágio que encerrou o request.
func Annotate(ctx context.Context, stage, detail string) {
	if o := outcomeFrom(ctx); o != nil {
		o.mu.Lock()
		o.stage = stage
		o.detail = detail
		o.mu.Unlock()
	}
}

// SetClient registra a identidade usada pelo rate limit.
func SetClient(ctx context.Context, key string) {
	if o := outcomeFrom(ctx); o != nil {
		o.mu.Lock()
		o.client = key
		o.mu.Unlock()
	}
}

func (o *Outcome) snapshot() (stage, detail, client string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stage, o.detail, o.client
}
