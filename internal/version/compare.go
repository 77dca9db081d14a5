package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
)

// CheckStrategyCompatibility reports whether a strategy pinned to required can run on engineVersion.
//
// Rules:
//   - An empty requirement, or "main" on either side, always passes
//   - A bare version such as "0.2.1" is read as the caret range "^0.2.1"
//   - Anything else is parsed as a semver constraint, e.g. ">= 0.2, < 0.4"
func CheckStrategyCompatibility(engineVersion, required string) error {
	engineVersion = strings.TrimPrefix(strings.TrimSpace(engineVersion), "v")
	required = strings.TrimSpace(required)

	if required == "" || required == "main" || engineVersion == "main" {
		return nil
	}

	engine, err := semver.NewVersion(engineVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid engine version %q", engineVersion)
	}

	expr := required
	if _, err := semver.NewVersion(strings.TrimPrefix(required, "v")); err == nil {
		expr = "^" + strings.TrimPrefix(required, "v")
	}

	constraint, err := semver.NewConstraint(expr)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeValidation, err, "invalid engineVersion %q", required)
	}

	if !constraint.Check(engine) {
		return errors.Newf(errors.ErrCodeVersionMismatch, "strategy requires engine %s but running %s", required, engine.String())
	}

	return nil
}

// CheckCompatibility checks required against the running engine version.
func CheckCompatibility(required string) error {
	return CheckStrategyCompatibility(Version, required)
}
