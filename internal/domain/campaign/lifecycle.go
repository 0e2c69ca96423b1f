package campaign

import "time"

// Evaluate computes the status a campaign should have at now from its
// aggregates and dates. It has no side effects:
//   - terminal statuses are returned unchanged
//   - collected >= goal yields completed
//   - now past the end date yields expired
//   - otherwise the current status is kept
func Evaluate(c *Campaign, now time.Time) Status {
	if c.Status.IsTerminal() {
		return c.Status
	}
	if c.Goal.IsPositive() && c.Collected.GreaterThanOrEqual(c.Goal) {
		return StatusCompleted
	}
	if now.After(c.EndDate) {
		return StatusExpired
	}
	return c.Status
}
