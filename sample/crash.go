package sample

import "gamehost/sim"

// CrashAfter builds a constructor whose simulation panics on tick n.
// Used to exercise the fatal-simulation path: the instance must return
// every held sink and terminate without taking the process down.
func CrashAfter(n int) sim.Constructor {
	return func() sim.Simulation {
		return &crashy{after: n}
	}
}

type crashy struct {
	ticks int
	after int
}

func (c *crashy) Init() sim.Config {
	return sim.Config{TickRate: DefaultTickRate, MaxPlayers: DefaultMaxPlayers}
}

func (c *crashy) Tick(ctx *sim.Context) {
	for {
		if _, ok := ctx.PopIn(); !ok {
			break
		}
	}
	c.ticks++
	if c.ticks >= c.after {
		panic("simulated simulation failure")
	}
}
