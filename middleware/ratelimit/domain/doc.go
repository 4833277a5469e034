// Package domain define contratos e tipos de domínio para a janela deslizante
// de admissão e para o limite de concorrência.
//
// Este pacote não depende de net/http nem de implementações concretas.
package domain
