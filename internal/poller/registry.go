package poller

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// Runner is anything Group can run until shutdown.
type Runner interface {
	Run(ctx context.Context) error
}

// Group runs pollers side by side.
type Group struct {
	runners []Runner
}

// NewGroup builds a group preloaded with the provided runners.
func NewGroup(runners ...Runner) *Group {
	g := &Group{}
	for _, r := range runners {
		g.Add(r)
	}
	return g
}

func (g *Group) Add(r Runner) {
	if r == nil {
		return
	}
	g.runners = append(g.runners, r)
}

func (g *Group) Len() int {
	return len(g.runners)
}

// Run blocks until every runner has returned. Cancellation is not an error.
func (g *Group) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	for _, r := range g.runners {
		eg.Go(func() error {
			if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	return eg.Wait()
}
