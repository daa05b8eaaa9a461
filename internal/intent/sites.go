package intent

// Site tables are keyed by the full normalized utterance.
var newTabSites = map[string]string{
	"open google":  "https://www.google.com",
	"open amazon":  "https://www.amazon.in",
	"open bank":    "https://www.onlinesbi.sbi",
	"open sbi":     "https://www.onlinesbi.sbi",
	"open hdfc":    "https://www.hdfcbank.com",
	"open youtube": "https://www.youtube.com",
}

var embeddedSites = map[string]string{
	"open tesla":        "https://www.tesla.com",
	"open share market": "https://www.tradingview.com",
	"open market":       "https://www.tradingview.com",
	"open tradingview":  "https://www.tradingview.com",
	"open wikipedia":    "https://en.wikipedia.org",
	"open github":       "https://github.com",
}

// NewTabSites returns a copy of the new-tab site table.
func NewTabSites() map[string]string { return copyTable(newTabSites) }

// EmbeddedSites returns a copy of the embedded site table.
func EmbeddedSites() map[string]string { return copyTable(embeddedSites) }

func copyTable(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
