package loyalty

import "time"

// Metric codes badges can be triggered by. Ledger categories double as
// metric codes (count of earn entries in that category); MetricMember is
// evaluated against facts about the account itself.
const (
	MetricOrder      = "order"
	MetricReferral   = "referral"
	MetricCommunity  = "community"
	MetricEngagement = "engagement"
	MetricMember     = "member"
)

// Facts is the read-only snapshot of an account a badge predicate may
// inspect. Kept deliberately small; predicates must stay pure.
type Facts struct {
	AccountID string
	CreatedAt time.Time
}

// Badge defines one achievable badge. Two requirement kinds exist:
//
//   - threshold: granted when the tracked metric value reaches Threshold;
//   - predicate: granted when Predicate(facts) is true, evaluated whenever
//     the badge's metric fires.
//
// Exactly one of the two applies: a non-nil Predicate wins and Threshold is
// ignored. A badge, once granted, is permanent — idempotency is enforced by
// the evaluator and the unique index on account badges.
type Badge struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Metric      string `json:"metric"`
	Threshold   int64  `json:"threshold,omitempty"`

	Predicate func(Facts) bool `json:"-"`
}

// Satisfied reports whether the badge requirement holds for the given metric
// value and account facts.
func (b Badge) Satisfied(value int64, facts Facts) bool {
	if b.Predicate != nil {
		return b.Predicate(facts)
	}
	return value >= b.Threshold
}

// BadgeSet is the static collection of defined badges, indexed by trigger
// metric. Built once at startup; safe for concurrent reads.
type BadgeSet struct {
	byMetric map[string][]Badge
	all      []Badge
}

// NewBadgeSet indexes badges by their trigger metric.
func NewBadgeSet(badges []Badge) BadgeSet {
	byMetric := make(map[string][]Badge)
	all := make([]Badge, len(badges))
	copy(all, badges)
	for _, b := range all {
		byMetric[b.Metric] = append(byMetric[b.Metric], b)
	}
	return BadgeSet{byMetric: byMetric, all: all}
}

// ForMetric returns the badges triggered by the given metric code.
func (s BadgeSet) ForMetric(code string) []Badge {
	return s.byMetric[code]
}

// All returns every defined badge in definition order.
func (s BadgeSet) All() []Badge {
	out := make([]Badge, len(s.all))
	copy(out, s.all)
	return out
}

// DefaultBadges is the stock badge list. launch parameterizes the
// founding-member cutoff so the predicate stays pure and testable.
func DefaultBadges(launch time.Time) []Badge {
	return []Badge{
		{Code: "first-order", Name: "First Order", Description: "Completed your first meal box order", Metric: MetricOrder, Threshold: 1},
		{Code: "regular", Name: "Regular", Description: "Ten orders delivered", Metric: MetricOrder, Threshold: 10},
		{Code: "referral-champion", Name: "Referral Champion", Description: "Brought five friends to the table", Metric: MetricReferral, Threshold: 5},
		{Code: "community-voice", Name: "Community Voice", Description: "Ten community contributions", Metric: MetricCommunity, Threshold: 10},
		{Code: "streak-keeper", Name: "Streak Keeper", Description: "Thirty engagement actions", Metric: MetricEngagement, Threshold: 30},
		{
			Code:        "founding-member",
			Name:        "Founding Member",
			Description: "Joined before the public launch",
			Metric:      MetricMember,
			Predicate: func(f Facts) bool {
				return !f.CreatedAt.IsZero() && f.CreatedAt.Before(launch)
			},
		},
	}
}
