// Package ratelimit fornece adapters HTTP (net/http) para a admissão por janela
// deslizante e para o limite de concorrência.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (decisão allow/deny, acquire/timeout) sem net/http
//   - infra: implementações concretas (janela em memória/Redis, semáforo, estatísticas)
//   - ratelimit (este pacote): middlewares HTTP + extração de chave + tradução para status/headers
//
// Fluxo no gateway:
//
//  1. Extrai a chave do cliente (header/XFF/IP)
//  2. Chama a camada application para obter a decisão
//  3. Se bloqueado, responde 429 {"detail": ...} (rate limit) ou 503 (concorrência)
//  4. Se permitido, chama o próximo handler (análise de texto/imagem/áudio)
//
// Variáveis de ambiente do binário (cmd/gateway) controlam o comportamento,
// como RATE_LIMIT_MAX_REQUESTS, RATE_LIMIT_DURATION (segundos ou duração Go), CONCURRENCY_MAX e CONCURRENCY_TIMEOUT.
package ratelimit
