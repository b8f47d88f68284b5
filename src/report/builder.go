// Package report assembles the reconciliation artifacts: the matched and
// unmatched sections with diagnostics, the commission analysis, the scalar
// summary, and the enhanced clearing output.
package report

import (
	"fmt"
	"math"
	"sort"

	"github.com/username/brokerecon/backend/src/models"
	"github.com/username/brokerecon/backend/src/recon"
)

// MatchedRow is a clearing trade carrying the three payload fields
// transplanted from its paired broker trade.
type MatchedRow struct {
	Clearing models.CanonicalTrade `json:"clearing"`
	Comms    float64               `json:"comms"`
	Taxes    float64               `json:"taxes"`
	TD       string                `json:"td"`
}

// UnmatchedRow is one unmatched record with its diagnostic.
type UnmatchedRow struct {
	Trade      models.CanonicalTrade `json:"trade"`
	Diagnostic models.Diagnostic     `json:"diagnostic"`
}

// ReasonCount gives the analyst a prioritized remediation list: how many
// unmatched records share each failure reason, most frequent first.
type ReasonCount struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// CommissionRow is the per-matched-trade commission analysis. Futures rates
// are a percentage of notional; options rates are rupees per lot, because an
// option premium makes notional a meaningless denominator.
type CommissionRow struct {
	BrokerName      string  `json:"broker_name"`
	BrokerCode      int     `json:"broker_code"`
	BloombergTicker string  `json:"bloomberg_ticker"`
	Instrument      string  `json:"instrument"` // Futures or the option class
	Side            string  `json:"side"`
	Lots            float64 `json:"lots,omitempty"`
	Quantity        int     `json:"quantity"`
	Price           float64 `json:"price"`
	TradeValue      float64 `json:"trade_value"`
	Brokerage       float64 `json:"brokerage"`
	CommRate        string  `json:"comm_rate"`
	Taxes           float64 `json:"taxes"`
	TaxRatePct      float64 `json:"tax_rate_pct"`
}

// CommissionSummary aggregates one broker's futures or options book.
type CommissionSummary struct {
	BrokerName string  `json:"broker_name"`
	BrokerCode int     `json:"broker_code"`
	Instrument string  `json:"instrument"` // "Futures" or "Options"
	TradeCount int     `json:"trade_count"`
	Lots       float64 `json:"lots,omitempty"`
	Quantity   int     `json:"quantity"`
	TradeValue float64 `json:"trade_value"`
	Brokerage  float64 `json:"brokerage"`
	CommRate   string  `json:"comm_rate"`
	Taxes      float64 `json:"taxes"`
	TaxRatePct float64 `json:"tax_rate_pct"`
}

// Report is the full multi-section reconciliation artifact.
type Report struct {
	Matched             []MatchedRow        `json:"matched"`
	UnmatchedClearing   []UnmatchedRow      `json:"unmatched_clearing"`
	UnmatchedBroker     []UnmatchedRow      `json:"unmatched_broker"`
	ClearingReasons     []ReasonCount       `json:"clearing_reason_counts"`
	BrokerReasons       []ReasonCount       `json:"broker_reason_counts"`
	Commission          []CommissionRow     `json:"commission"`
	CommissionSummaries []CommissionSummary `json:"commission_summaries"`
	Summary             models.Summary      `json:"summary"`
}

// Build assembles the report from a finished matching run. Diagnostics are
// computed here, against each side's full opposite set, so the report is the
// single place that explains every non-match.
func Build(clearing, broker []models.CanonicalTrade, pairs []models.MatchPair, unmatchedClearing, unmatchedBroker []int) *Report {
	r := &Report{}

	for _, p := range pairs {
		b := broker[p.BrokerIdx]
		r.Matched = append(r.Matched, MatchedRow{
			Clearing: clearing[p.ClearingIdx],
			Comms:    b.PureBrokerage,
			Taxes:    b.TotalTaxes,
			TD:       b.TradeDate,
		})
	}

	for _, ci := range unmatchedClearing {
		d := recon.Explain(&clearing[ci], broker, "clearing", "broker")
		r.UnmatchedClearing = append(r.UnmatchedClearing, UnmatchedRow{Trade: clearing[ci], Diagnostic: d})
	}
	for _, bi := range unmatchedBroker {
		d := recon.Explain(&broker[bi], clearing, "broker", "clearing")
		r.UnmatchedBroker = append(r.UnmatchedBroker, UnmatchedRow{Trade: broker[bi], Diagnostic: d})
	}
	r.ClearingReasons = countReasons(r.UnmatchedClearing)
	r.BrokerReasons = countReasons(r.UnmatchedBroker)

	r.Commission, r.CommissionSummaries = commissionAnalysis(broker, pairs)
	r.Summary = summarize(clearing, broker, pairs, unmatchedClearing, unmatchedBroker)
	return r
}

// countReasons tallies failure reasons by the predicate that failed, most
// frequent first, ties broken alphabetically for stable output.
func countReasons(rows []UnmatchedRow) []ReasonCount {
	counts := make(map[string]int)
	for _, row := range rows {
		key := string(row.Diagnostic.Failed)
		if key == "" {
			key = "Already matched"
		}
		counts[key]++
	}
	out := make([]ReasonCount, 0, len(counts))
	for reason, n := range counts {
		out = append(out, ReasonCount{Reason: reason, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}

func commissionAnalysis(broker []models.CanonicalTrade, pairs []models.MatchPair) ([]CommissionRow, []CommissionSummary) {
	var rows []CommissionRow
	for _, p := range pairs {
		b := broker[p.BrokerIdx]
		tradeValue := b.NotionalValue()
		lots := math.Abs(b.Lots)

		row := CommissionRow{
			BrokerName:      b.BrokerName,
			BrokerCode:      b.BrokerCode,
			BloombergTicker: b.BloombergTicker,
			Instrument:      string(b.SecurityType),
			Side:            string(b.Side),
			Quantity:        b.Quantity,
			Price:           b.Price,
			TradeValue:      tradeValue,
			Brokerage:       b.PureBrokerage,
			Taxes:           b.TotalTaxes,
		}
		if b.HasLots {
			row.Lots = lots
		}
		if b.SecurityType == models.SecurityFutures {
			rate := 0.0
			if tradeValue > 0 {
				rate = b.PureBrokerage / tradeValue * 100
			}
			row.CommRate = fmt.Sprintf("%.4f%%", rate)
		} else {
			perLot := 0.0
			if lots > 0 {
				perLot = b.PureBrokerage / lots
			}
			row.CommRate = fmt.Sprintf("₹%.2f/lot", perLot)
		}
		if tradeValue > 0 {
			row.TaxRatePct = b.TotalTaxes / tradeValue * 100
		}
		rows = append(rows, row)
	}
	return rows, summarizeCommission(rows)
}

type brokerKey struct {
	name string
	code int
}

// summarizeCommission rolls the per-trade rows up per broker, futures and
// options separately since their rate units differ.
func summarizeCommission(rows []CommissionRow) []CommissionSummary {
	type bucket struct {
		count      int
		lots       float64
		quantity   int
		tradeValue float64
		brokerage  float64
		taxes      float64
	}
	futures := make(map[brokerKey]*bucket)
	options := make(map[brokerKey]*bucket)

	for _, row := range rows {
		key := brokerKey{row.BrokerName, row.BrokerCode}
		m := options
		if row.Instrument == string(models.SecurityFutures) {
			m = futures
		}
		b := m[key]
		if b == nil {
			b = &bucket{}
			m[key] = b
		}
		b.count++
		b.lots += row.Lots
		b.quantity += row.Quantity
		b.tradeValue += row.TradeValue
		b.brokerage += row.Brokerage
		b.taxes += row.Taxes
	}

	var out []CommissionSummary
	for key, b := range futures {
		rate := 0.0
		if b.tradeValue > 0 {
			rate = b.brokerage / b.tradeValue * 100
		}
		out = append(out, CommissionSummary{
			BrokerName: key.name, BrokerCode: key.code, Instrument: "Futures",
			TradeCount: b.count, Quantity: b.quantity, TradeValue: b.tradeValue,
			Brokerage: b.brokerage, CommRate: fmt.Sprintf("%.4f%%", rate),
			Taxes: b.taxes, TaxRatePct: taxRate(b.taxes, b.tradeValue),
		})
	}
	for key, b := range options {
		perLot := 0.0
		if b.lots > 0 {
			perLot = b.brokerage / b.lots
		}
		out = append(out, CommissionSummary{
			BrokerName: key.name, BrokerCode: key.code, Instrument: "Options",
			TradeCount: b.count, Lots: b.lots, Quantity: b.quantity, TradeValue: b.tradeValue,
			Brokerage: b.brokerage, CommRate: fmt.Sprintf("₹%.2f/lot", perLot),
			Taxes: b.taxes, TaxRatePct: taxRate(b.taxes, b.tradeValue),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BrokerName != out[j].BrokerName {
			return out[i].BrokerName < out[j].BrokerName
		}
		if out[i].BrokerCode != out[j].BrokerCode {
			return out[i].BrokerCode < out[j].BrokerCode
		}
		return out[i].Instrument < out[j].Instrument
	})
	return out
}

func taxRate(taxes, tradeValue float64) float64 {
	if tradeValue <= 0 {
		return 0
	}
	return taxes / tradeValue * 100
}

func summarize(clearing, broker []models.CanonicalTrade, pairs []models.MatchPair, unmatchedClearing, unmatchedBroker []int) models.Summary {
	s := models.Summary{
		MatchedCount:           len(pairs),
		UnmatchedClearingCount: len(unmatchedClearing),
		UnmatchedBrokerCount:   len(unmatchedBroker),
		TotalClearing:          len(clearing),
		TotalBroker:            len(broker),
	}
	if s.TotalClearing > 0 {
		s.MatchRate = math.Round(float64(s.MatchedCount)/float64(s.TotalClearing)*100*100) / 100
	}
	for _, p := range pairs {
		s.TotalBrokerage += broker[p.BrokerIdx].PureBrokerage
		s.TotalTaxes += broker[p.BrokerIdx].TotalTaxes
	}
	return s
}
