package workflow

import (
	"context"

	"github.com/joshuapare/boxtrace/transfer"
)

// StaticLocator reports a fixed position, for devices without a GPS fix
// source such as a gateway at a known collection point.
type StaticLocator transfer.Coordinate

// Locate implements Locator.
func (l StaticLocator) Locate(ctx context.Context) (transfer.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return transfer.Coordinate{}, err
	}
	return transfer.Coordinate(l), nil
}

// ScannerFunc adapts a function to Scanner.
type ScannerFunc func(ctx context.Context) (transfer.BoxID, error)

// Scan implements Scanner.
func (f ScannerFunc) Scan(ctx context.Context) (transfer.BoxID, error) { return f(ctx) }
