package manager

import (
	"fmt"

	"hdi1d/internal/errs"
)

func errVariantNotFound(id string) error {
	return errs.Configuration("ensure", fmt.Sprintf("unknown model variant %q", id))
}

func errTooBusy(reason string) error {
	return errs.E(errs.KindBusy, "admit", fmt.Errorf("too busy: %s", reason))
}

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool { return errs.IsBusy(err) }

// IsVariantNotFound reports whether err came from an unknown variant id.
func IsVariantNotFound(err error) bool { return errs.IsConfiguration(err) }
