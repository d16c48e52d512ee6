// Package clipboard adapts github.com/atotto/clipboard to the
// display.Sink interface used by the C7 display router.
package clipboard

import (
	"fmt"

	"github.com/atotto/clipboard"
)

// Local writes directly to the host OS clipboard. It is the sink the
// CLI's display router uses, and the agent's clipboardStore handler
// writes through it as well.
type Local struct{}

// Store implements display.Sink.
func (Local) Store(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	return nil
}
