package domain

// Target is the corpus (or computation) a question is routed to.
type Target int

const (
	TargetTransactions Target = iota
	TargetPolicies
	TargetDirectCompute
)

func (t Target) String() string {
	switch t {
	case TargetTransactions:
		return "transactions"
	case TargetPolicies:
		return "policies"
	case TargetDirectCompute:
		return "direct_compute"
	default:
		return "unknown"
	}
}

// Window is a date range resolved relative to the time of the call.
type Window int

const (
	WindowToday Window = iota
	WindowYesterday
	WindowLast7Days
)

func (w Window) String() string {
	switch w {
	case WindowToday:
		return "today"
	case WindowYesterday:
		return "yesterday"
	case WindowLast7Days:
		return "last 7 days"
	default:
		return "unknown"
	}
}

// AggregateSumTotalAmount is the only aggregate the shortcut computes.
const AggregateSumTotalAmount = "sum of total_amount"

// RouteDecision is the router's verdict for one query. Kind and Window are
// only meaningful when Target is TargetDirectCompute.
type RouteDecision struct {
	Target Target
	Kind   string
	Window Window
}

// TransactionsRoute, PoliciesRoute and DirectCompute build decisions.
func TransactionsRoute() RouteDecision { return RouteDecision{Target: TargetTransactions} }

func PoliciesRoute() RouteDecision { return RouteDecision{Target: TargetPolicies} }

func DirectCompute(w Window) RouteDecision {
	return RouteDecision{Target: TargetDirectCompute, Kind: AggregateSumTotalAmount, Window: w}
}

func (d RouteDecision) String() string {
	if d.Target == TargetDirectCompute {
		return d.Target.String() + "(" + d.Kind + ", " + d.Window.String() + ")"
	}
	return d.Target.String()
}
