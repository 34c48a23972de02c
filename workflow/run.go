package workflow

import (
	"context"
	"fmt"

	"github.com/joshuapare/boxtrace/transfer"
)

// Prompter is the operator's side of a transfer.
type Prompter interface {
	// Notify shows an instruction or status line.
	Notify(msg string)
	// Confirm asks a yes/no question.
	Confirm(ctx context.Context, question string) (bool, error)
}

// Questions asked by Run.
const (
	QuestionWaste         = "Mark the source box as waste?"
	QuestionLastDump      = "Is this the last dump from the source box?"
	QuestionFinalShipment = "Is this the final shipment?"
)

// Run drives one whole transfer: scan the source, offer to discard it as
// waste, scan the destination, ask the last dump and final shipment
// questions, then complete. Any error leaves the controller idle.
func (c *Controller) Run(ctx context.Context, farmerID *string, p Prompter) (Outcome, error) {
	p.Notify("Hold the reader to the source box tag")
	src, err := c.ScanSource(ctx, farmerID)
	if err != nil {
		return OutcomeNone, fmt.Errorf("scan source: %w", err)
	}
	p.Notify(fmt.Sprintf("Source box %s", src))

	waste, err := p.Confirm(ctx, QuestionWaste)
	if err != nil {
		_ = c.Cancel()
		return OutcomeNone, err
	}
	if waste {
		if err := c.Cancel(); err != nil {
			return OutcomeNone, err
		}
		p.Notify(fmt.Sprintf("Box %s marked as waste", src))
		return OutcomeCancelled, nil
	}

	p.Notify("Hold the reader to the destination box tag")
	dest, err := c.ScanDestination(ctx)
	if err != nil {
		return OutcomeNone, fmt.Errorf("scan destination: %w", err)
	}
	p.Notify(fmt.Sprintf("Destination box %s", dest))

	if err := c.ask(ctx, p); err != nil {
		_ = c.Cancel()
		return OutcomeNone, err
	}

	outcome, err := c.Complete(ctx)
	switch outcome {
	case OutcomeSubmitted:
		p.Notify(describe(src, dest, "submitted"))
	case OutcomeSavedOffline:
		p.Notify(describe(src, dest, "saved offline, will sync when connected"))
	}
	return outcome, err
}

func (c *Controller) ask(ctx context.Context, p Prompter) error {
	last, err := p.Confirm(ctx, QuestionLastDump)
	if err != nil {
		return err
	}
	if err := c.AnswerLastDump(last); err != nil {
		return err
	}
	if !last {
		return nil
	}
	final, err := p.Confirm(ctx, QuestionFinalShipment)
	if err != nil {
		return err
	}
	return c.AnswerFinalShipment(final)
}

func describe(src, dest transfer.BoxID, status string) string {
	return fmt.Sprintf("Transfer %s -> %s %s", src, dest, status)
}
