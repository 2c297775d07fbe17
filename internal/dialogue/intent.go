package dialogue

import "strings"

// schedulingKeywords is the fixed keyword set for scheduling-intent
// classification. Deliberately a crude substring match: a second model
// call would double the turn latency for a signal this reliable.
var schedulingKeywords = []string{
	"schedule",
	"appointment",
	"book",
	"when can",
	"available",
	"come out",
	"visit",
	"time",
}

// DetectSchedulingIntent reports whether the caller utterance or the
// agent reply signals a desire to book a service visit. Case-insensitive
// substring match against the fixed keyword set.
func DetectSchedulingIntent(utterance, reply string) bool {
	combined := strings.ToLower(utterance + " " + reply)
	for _, kw := range schedulingKeywords {
		if strings.Contains(combined, kw) {
			return true
		}
	}
	return false
}
