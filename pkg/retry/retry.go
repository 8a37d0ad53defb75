package retry

// Action is a unit of work that may be attempted more than once.
type Action func() error

// Retrier attempts an Action until it succeeds or its strategies give up.
type Retrier interface {
	Retry(action Action) (uint, error)
}

type retrier struct {
	strategies []Strategy
}

// NewRetrier returns a Retrier bound to a fixed set of strategies. Without any
// strategies the action is attempted until it returns nil.
func NewRetrier(strategies ...Strategy) Retrier {
	return &retrier{
		strategies: strategies,
	}
}

func (r *retrier) Retry(action Action) (uint, error) {
	return Retry(action, r.strategies...)
}

// Retry runs action until it returns nil or a strategy rejects another
// attempt. It returns the number of attempts made along with the last error.
//
// Strategies are consulted in order after every failure, so anything that
// sleeps belongs at the end of the list.
func Retry(action Action, strategies ...Strategy) (uint, error) {
	for attempt := uint(1); ; attempt++ {
		err := action()
		if err == nil {
			return attempt, nil
		}

		if !shouldRetry(strategies, attempt, err) {
			return attempt, err
		}
	}
}

// Loop runs action forever. A successful run resets the attempt counter, and
// a failed run is handed to the strategies, which decide whether the loop
// keeps going. The error that stopped the loop is returned.
func Loop(action Action, strategies ...Strategy) error {
	for attempt := uint(1); ; attempt++ {
		err := action()
		if err == nil {
			attempt = 0
			continue
		}

		if !shouldRetry(strategies, attempt, err) {
			return err
		}
	}
}

func shouldRetry(strategies []Strategy, attempt uint, err error) bool {
	for _, s := range strategies {
		if !s(attempt, err) {
			return false
		}
	}
	return true
}
