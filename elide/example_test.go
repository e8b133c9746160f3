package elide_test

import (
	"fmt"

	"github.com/kolkov/lockelide/elide"
)

// Example increments a counter under an elided mutex. Without RTM hardware
// the scope takes the mutex; the result is the same either way.
func Example() {
	var (
		mu      elide.Mutex
		counter int
	)

	for i := 0; i < 3; i++ {
		elide.Run(&mu, func(s *elide.Scope) {
			counter++
		})
	}
	fmt.Println(counter)

	// Output:
	// 3
}

// Example_onCommit defers a side effect until the critical section has
// ended, so it happens once even if the transaction ran several times.
func Example_onCommit() {
	var mu elide.SpinLock
	balances := map[string]int{"alice": 10}

	e := elide.MustNew(elide.WithName("example-transfer"))
	e.Run(&mu, func(s *elide.Scope) {
		balances["alice"] -= 3
		balances["bob"] += 3
		s.OnCommit(func() { fmt.Println("transfer done") })
	})
	fmt.Println(balances["alice"], balances["bob"])

	// Output:
	// transfer done
	// 7 3
}

// Example_enterExit uses Enter and Exit directly when a closure does not
// fit.
func Example_enterExit() {
	var mu elide.TicketLock
	total := 0

	s := elide.Enter(&mu)
	total += 5
	s.OnCommit(func() { fmt.Println("committed") })
	s.Exit()
	fmt.Println(total)

	// Output:
	// committed
	// 5
}
