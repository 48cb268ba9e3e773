package capture

import (
	"fmt"
	"time"

	"github.com/checkcells/checkcells/internal/config"
	"github.com/checkcells/checkcells/internal/log"
)

// Decision is the aggregator's verdict after a take is accepted.
type Decision string

const (
	// DecisionForceFinalize: the take cap is reached; finalize without prompting.
	DecisionForceFinalize Decision = "force_finalize"

	// DecisionPromptAnother: another take is required; the finish option is withheld.
	DecisionPromptAnother Decision = "prompt_another"

	// DecisionOfferFinish: both "record another" and "finish" are available.
	DecisionOfferFinish Decision = "offer_finish"
)

// Aggregator accumulates accepted takes for one test and applies the
// stopping policy: a take cap, a minimum take count, and a minimum
// cumulative duration before finishing is offered.
type Aggregator struct {
	policy config.CaptureConfig
	takes  []Take
	total  time.Duration
}

// NewAggregator creates an empty aggregator with the given policy.
// The policy must already be validated.
func NewAggregator(policy config.CaptureConfig) *Aggregator {
	return &Aggregator{policy: policy}
}

// OnTakeAccepted appends an accepted take and returns the stopping decision.
//
// The policy is evaluated in order:
//  1. take count at cap → force finalize
//  2. fewer than MinTakes accepted → prompt for another, finish withheld
//  3. cumulative duration below minimum → prompt for another, finish withheld
//  4. otherwise → offer both another take and finish
func (a *Aggregator) OnTakeAccepted(take Take) (Decision, error) {
	if len(a.takes) >= a.policy.MaxTakes {
		return "", fmt.Errorf("capture: take cap of %d reached", a.policy.MaxTakes)
	}
	if want := len(a.takes) + 1; take.Index != want {
		return "", fmt.Errorf("capture: take index %d out of order, want %d", take.Index, want)
	}

	a.takes = append(a.takes, take)
	a.total += take.Duration

	decision := a.decide()
	logger := log.WithComponent("capture")
	logger.Info().
		Str(log.FieldEvent, "take.accepted").
		Int(log.FieldTake, take.Index).
		Int(log.FieldTakes, len(a.takes)).
		Float64(log.FieldDuration, a.total.Seconds()).
		Str("decision", string(decision)).
		Msg("take accepted")
	return decision, nil
}

func (a *Aggregator) decide() Decision {
	switch {
	case len(a.takes) >= a.policy.MaxTakes:
		return DecisionForceFinalize
	case len(a.takes) < a.policy.MinTakes:
		return DecisionPromptAnother
	case a.total < a.policy.MinTotalDuration:
		return DecisionPromptAnother
	default:
		return DecisionOfferFinish
	}
}

// CanFinish reports whether finalizing is currently permitted: either the
// cap forced it or both the minimum take count and minimum duration are met.
func (a *Aggregator) CanFinish() bool {
	if len(a.takes) == 0 {
		return false
	}
	if len(a.takes) >= a.policy.MaxTakes {
		return true
	}
	return len(a.takes) >= a.policy.MinTakes && a.total >= a.policy.MinTotalDuration
}

// AtCap reports whether no further takes may be started.
func (a *Aggregator) AtCap() bool {
	return len(a.takes) >= a.policy.MaxTakes
}

// Count returns the number of accepted takes.
func (a *Aggregator) Count() int {
	return len(a.takes)
}

// NextIndex returns the 1-based index the next accepted take must carry.
func (a *Aggregator) NextIndex() int {
	return len(a.takes) + 1
}

// TotalDuration returns the cumulative duration of accepted takes.
func (a *Aggregator) TotalDuration() time.Duration {
	return a.total
}

// Takes returns the accepted takes in recording order.
func (a *Aggregator) Takes() []Take {
	out := make([]Take, len(a.takes))
	copy(out, a.takes)
	return out
}
