// Package metrics deriva os números do painel a partir do estado corrente
// dos chamados. Computação pura sobre um snapshot; nenhum estado próprio.
package metrics

import (
	"math"
	"sort"

	"github.com/urbanbyte/chamados/internal/ticket"
)

// Breakdown é um item rotulado das séries do painel.
type Breakdown struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// Summary agrega os indicadores do painel de um tenant.
type Summary struct {
	Open           int64       `json:"total_open"`
	InProgress     int64       `json:"total_in_progress"`
	Closed         int64       `json:"total_closed"`
	Total          int64       `json:"total"`
	ResolutionRate float64     `json:"resolution_rate"`
	ByStatus       []Breakdown `json:"by_status"`
	BySector       []Breakdown `json:"by_sector"`
}

// lifecycleOrder fixa a ordem de exibição da série por status.
var lifecycleOrder = []string{
	ticket.StatusAberto,
	ticket.StatusEmAndamento,
	ticket.StatusResolvido,
	ticket.StatusFechado,
}

// Compute agrega as contagens num Summary. Resolvido e fechado contam como
// encerrados; taxa de resolução é encerrados/total em percentual, zero para
// conjunto vazio (nunca divisão por zero).
func Compute(statuses []ticket.StatusCount, sectors []ticket.SectorCount) Summary {
	counts := make(map[string]int64, len(statuses))
	var total int64
	for _, sc := range statuses {
		counts[sc.Status] += sc.Count
		total += sc.Count
	}

	summary := Summary{
		Open:       counts[ticket.StatusAberto],
		InProgress: counts[ticket.StatusEmAndamento],
		Closed:     counts[ticket.StatusResolvido] + counts[ticket.StatusFechado],
		Total:      total,
	}

	if total > 0 {
		rate := float64(summary.Closed) * 100 / float64(total)
		summary.ResolutionRate = math.Round(rate*10) / 10
	}

	summary.ByStatus = make([]Breakdown, 0, len(lifecycleOrder))
	for _, status := range lifecycleOrder {
		summary.ByStatus = append(summary.ByStatus, Breakdown{Label: status, Count: counts[status]})
	}

	summary.BySector = make([]Breakdown, 0, len(sectors))
	for _, sc := range sectors {
		summary.BySector = append(summary.BySector, Breakdown{Label: sc.Label, Count: sc.Count})
	}
	sort.SliceStable(summary.BySector, func(i, j int) bool {
		if summary.BySector[i].Count != summary.BySector[j].Count {
			return summary.BySector[i].Count > summary.BySector[j].Count
		}
		return summary.BySector[i].Label < summary.BySector[j].Label
	})

	return summary
}
