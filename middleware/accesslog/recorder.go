package accesslog

import "net/http"

// Recorder guarda o status e o tamanho escritos na resposta.
type Recorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func NewRecorder(w http.ResponseWriter) *Recorder {
	if rec, ok := w.(*Recorder); ok {
		return rec
	}
	return &Recorder{ResponseWriter: w}
}

func (r *Recorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *Recorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += int64(n)
	return n, err
}

// Status retorna 200 quando o handler não escreveu nada.
func (r *Recorder) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func (r *Recorder) Bytes() int64 { return r.bytes }

// Written indica se o status já foi enviado.
func (r *Recorder) Written() bool { return r.status != 0 }

func (r *Recorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }
