package probe

import (
	"context"
	"time"
)

// minReplyMargin is the least time left between a reply window closing and
// the execution deadline.
const minReplyMargin = 50 * time.Millisecond

// ReplyWindow returns how long a check may wait for an answer so that a
// silent peer is reported as a negative reading before the execution
// deadline in ctx passes. It is the smaller of timeout and the time left on
// ctx, less max(50ms, a tenth). Zero means no bound is known.
func ReplyWindow(ctx context.Context, timeout time.Duration) time.Duration {
	if d, ok := ctx.Deadline(); ok {
		if left := time.Until(d); timeout <= 0 || left < timeout {
			timeout = left
		}
		if timeout <= 0 {
			return time.Millisecond
		}
	}
	if timeout <= 0 {
		return 0
	}
	margin := max(minReplyMargin, timeout/10)
	if margin >= timeout {
		margin = timeout / 2
	}
	return timeout - margin
}
