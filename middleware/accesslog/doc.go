// Package accesslog fornece o request id, o registro do resultado de cada request
// e a linha de log estruturada (zap) emitida ao final do pipeline.
package accesslog
