package demand

import (
	"context"
	"log/slog"
	"math"
	"os"

	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/gridbalancer/pkg/log"
)

// Configured registers the demand flags and returns the predictor.
func Configured() *Predictor {
	p := NewPredictor(DefaultBaseMW, nil, nil)
	baseMW := DefaultBaseMW
	lflag.JSON(&baseMW, "demand-base-mw", baseMW, "base demand in MW before daily, seasonal and weekend adjustment")

	lflag.Do(func() {
		if baseMW < 0 || math.IsNaN(baseMW) || math.IsInf(baseMW, 0) {
			log.Ctx(context.Background()).Error("demand-base-mw must be a non-negative number", slog.Float64("value", baseMW))
			os.Exit(1)
		}
		p.baseMW = baseMW
	})
	return p
}
