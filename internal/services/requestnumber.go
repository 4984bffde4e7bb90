// Package services – request numbering
//
// Request numbers are human-facing identifiers of the form
// REQ-YYYYMMDD-NNNN: date-scoped, zero-padded, monotonically increasing
// within a calendar day. The generator reads the greatest existing number for
// today and increments it. That read-then-insert sequence is not
// transactionally isolated, so two concurrent submissions can compute the
// same next number; the create path recovers by retrying once with a
// timestamp-derived fallback when the insert reports a conflict.
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/desa-tempursari/layanan-backend/internal/repo"
)

// requestNumberPrefix returns "REQ-YYYYMMDD-" for the given day.
func requestNumberPrefix(day time.Time) string {
	return "REQ-" + day.UTC().Format("20060102") + "-"
}

// nextRequestNumber computes the next sequential number for today. When the
// lookup fails with a store error, it falls back to a timestamp-derived
// number so request creation is never blocked by generator failure.
func nextRequestNumber(ctx context.Context, db *gorm.DB, now time.Time) string {
	prefix := requestNumberPrefix(now)

	last, err := repo.LastRequestNumber(ctx, db, prefix)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return prefix + "0001"
		}
		// Store error: degrade to a timestamp-derived number rather than
		// refusing the submission.
		return fallbackRequestNumber(now, 4)
	}

	next := 1
	if parts := strings.Split(last, "-"); len(parts) == 3 {
		if n, perr := strconv.Atoi(parts[2]); perr == nil {
			next = n + 1
		}
	}
	return fmt.Sprintf("%s%04d", prefix, next)
}

// fallbackRequestNumber derives a number from the current epoch millis. The
// generator uses the last 4 digits; the conflict retry in Create uses 6 to
// make a second collision vanishingly unlikely.
func fallbackRequestNumber(now time.Time, digits int) string {
	millis := strconv.FormatInt(now.UnixMilli(), 10)
	if len(millis) > digits {
		millis = millis[len(millis)-digits:]
	}
	return requestNumberPrefix(now) + millis
}
