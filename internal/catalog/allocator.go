package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/brickline/estimator-backend/pkg/db"
	pkgerrors "github.com/brickline/estimator-backend/pkg/errors"
)

const (
	codeDigits       = 3
	allocateAttempts = 3
)

// NextCode returns the next sequential code under the prefix, "RES-007" style.
// Width grows past three digits instead of overflowing.
func NextCode(prefix, maxExisting string) string {
	next := 1
	if trailing, ok := strings.CutPrefix(maxExisting, prefix+"-"); ok {
		if n, err := strconv.Atoi(trailing); err == nil {
			next = n + 1
		}
	}
	return fmt.Sprintf("%s-%0*d", prefix, codeDigits, next)
}

// allocateCode reads the current maximum under the prefix and hands the
// attempted insert to apply. Two concurrent allocations can both read the
// same maximum; the unique constraint on resources.code rejects the loser and
// we re-read and retry a bounded number of times.
func allocateCode(ctx context.Context, repo ResourceRepository, prefix string, apply func(code string) error) (string, error) {
	var lastErr error
	for attempt := 0; attempt < allocateAttempts; attempt++ {
		maxCode, err := repo.MaxCodeWithPrefix(ctx, prefix)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reading max resource code")
		}
		code := NextCode(prefix, maxCode)
		if err := apply(code); err != nil {
			if db.IsUniqueViolation(err, "") {
				lastErr = err
				continue
			}
			return "", err
		}
		return code, nil
	}
	return "", pkgerrors.Wrap(pkgerrors.CodeConflict, lastErr, "resource code allocation kept colliding")
}
