// Package infra contém implementações concretas para os contratos do pacote domain.
//
//   - MemoryWindowStore: janela deslizante em memória com shards e janitor
//   - RedisWindowStore: a mesma janela em sorted sets (script Lua atômico)
//   - RedisStatsStore / MemoryStatsStore: contadores de decisões
//   - ChanPool: semáforo para limite de concorrência
package infra
