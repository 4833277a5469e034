// Package logging monta o logger zap do processo.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New devolve um logger JSON em produção e um logger colorido legível nos demais ambientes.
func New(env string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if env != "production" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.DisableStacktrace = env == "production"

	lg, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return lg.With(zap.String("service", "analysis-gateway")), nil
}
