package console

import (
	"fmt"
	"sort"
	"time"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/domain"
)

// Sink 把聚合快照按行打到终端，本地盯盘用
type Sink struct{}

func NewSink() port.BroadcastSink { return &Sink{} }

func (s *Sink) Broadcast(snap map[string]domain.AggregatedSymbol) error {
	syms := make([]string, 0, len(snap))
	for sym := range snap {
		syms = append(syms, sym)
	}
	sort.Strings(syms)

	ts := time.Now().Format("2006-01-02 15:04:05")
	for _, sym := range syms {
		agg := snap[sym]
		if !agg.HasSignal {
			fmt.Printf("%s %-10s --\n", ts, sym)
			continue
		}
		cross := " "
		if agg.CrossVenue {
			cross = "*"
		}
		fmt.Printf("%s %-10s %s bid %.4f@%s ask %.4f@%s spread %+.4f%%\n",
			ts, sym, cross, agg.BestBid, agg.BestBidVenue, agg.BestAsk, agg.BestAskVenue, agg.SpreadPct)
	}
	return nil
}
