package reconcile

import "carsync/internal/normalize"

func normalizerWith(models ...string) *normalize.Normalizer {
	return normalize.New(normalize.NewExceptionSet(models...))
}
