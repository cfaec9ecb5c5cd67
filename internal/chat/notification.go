// Package chat notifies operators of pipeline outcomes over two optional,
// fail-open surfaces: a Teams adaptive-card webhook (the primary channel)
// and a Slack mirror (an ops convenience). Neither notifier is ever fatal
// to the pipeline — every send failure is logged and swallowed.
package chat

// feedbackLink builds the relative path an operator follows to record a
// thumbs-up/down on a triaged incident directly from chat.
func feedbackLink(triageID string, thumbsUp bool) string {
	vote := "down"
	if thumbsUp {
		vote = "up"
	}
	return "/feedback/" + triageID + "?vote=" + vote
}

// Notification is the outcome summary both notifiers render, including a
// feedback link pair so operators can thumbs-up/down the classification
// directly from chat.
type Notification struct {
	TriageID        string
	Category        string
	Priority        string
	AssignmentGroup string
	Confidence      float64
	Action          string
}
