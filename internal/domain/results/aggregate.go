package results

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"evalhub/internal/domain/hierarchy"
)

const (
	scale         = 2
	maxNumericLen = 32
)

var (
	hundred      = decimal.NewFromInt(100)
	plainDecimal = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)
)

// Aggregate is the computed part of a Result.
type Aggregate struct {
	Total            int
	Completed        int
	Pending          int
	CompletionRate   decimal.Decimal
	OverallScore     decimal.NullDecimal
	ManagerScore     decimal.NullDecimal
	PeerScore        decimal.NullDecimal
	SubordinateScore decimal.NullDecimal
	SelfScore        decimal.NullDecimal
	Breakdown        Breakdown
}

// Compute aggregates the evaluations of one evaluatee. Buckets are assigned
// from direct edges only; anyone who is not self, a direct manager or a
// direct report lands in the peer bucket.
func Compute(evaluateeID string, evals []Evaluation, g *hierarchy.Graph) Aggregate {
	agg := Aggregate{Total: len(evals), Breakdown: Breakdown{Scores: []Scored{}}}
	buckets := map[string][]decimal.Decimal{}
	var all []decimal.Decimal
	var self *decimal.Decimal

	for _, ev := range evals {
		if !ev.completed() {
			continue
		}
		agg.Completed++
		score, ok := responseScore(ev.Answers)
		if !ok {
			agg.Breakdown.Ungraded++
			continue
		}
		bucket := classify(g, ev.EvaluatorID, evaluateeID)
		buckets[bucket] = append(buckets[bucket], score)
		all = append(all, score)
		if bucket == BucketSelf {
			s := score
			self = &s
		}
		agg.Breakdown.Counts.add(bucket)
		agg.Breakdown.Scores = append(agg.Breakdown.Scores, Scored{
			AssignmentID: ev.AssignmentID,
			EvaluatorID:  ev.EvaluatorID,
			Bucket:       bucket,
			Score:        score,
		})
	}

	agg.Pending = agg.Total - agg.Completed
	agg.CompletionRate = completionRate(agg.Completed, agg.Total)
	agg.OverallScore = mean(all)
	agg.ManagerScore = mean(buckets[BucketManager])
	agg.PeerScore = mean(buckets[BucketPeer])
	agg.SubordinateScore = mean(buckets[BucketSubordinate])
	if self != nil {
		agg.SelfScore = decimal.NewNullDecimal(*self)
	}
	return agg
}

func classify(g *hierarchy.Graph, evaluatorID, evaluateeID string) string {
	switch {
	case evaluatorID == evaluateeID:
		return BucketSelf
	case g.IsManagerOf(evaluatorID, evaluateeID):
		return BucketManager
	case g.IsManagerOf(evaluateeID, evaluatorID):
		return BucketSubordinate
	default:
		return BucketPeer
	}
}

// responseScore is the mean of the numeric answers. ok is false for a
// response without any numeric answer.
func responseScore(answers []Answer) (decimal.Decimal, bool) {
	var values []decimal.Decimal
	for _, a := range answers {
		if v, ok := answerValue(a); ok {
			values = append(values, v)
		}
	}
	m := mean(values)
	return m.Decimal, m.Valid
}

func answerValue(a Answer) (decimal.Decimal, bool) {
	return numeric(a.RawValue)
}

// numeric accepts plain decimal literals only. Exponent notation is refused
// so answer text cannot force huge rescaling during averaging.
func numeric(raw string) (decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > maxNumericLen || !plainDecimal.MatchString(raw) {
		return decimal.Decimal{}, false
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return v, true
}

func mean(values []decimal.Decimal) decimal.NullDecimal {
	if len(values) == 0 {
		return decimal.NullDecimal{}
	}
	avg := decimal.Avg(values[0], values[1:]...)
	return decimal.NewNullDecimal(avg.Round(scale))
}

func completionRate(completed, total int) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(completed)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(total))).
		Round(scale)
}
