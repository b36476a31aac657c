package core

import "fmt"

// Optimistic applies a speculative local change, then commits it remotely.
// If commit fails the snapshot taken before the change is restored and the
// commit error is returned.
//
// snapshot captures the current state, speculative mutates it, restore puts
// the captured state back.
func Optimistic[S any](snapshot func() S, restore func(S), speculative func(), commit func() error) error {
	prior := snapshot()
	speculative()
	if err := commit(); err != nil {
		restore(prior)
		return fmt.Errorf("rolled back: %w", err)
	}
	return nil
}
