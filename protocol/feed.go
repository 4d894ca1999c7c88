package protocol

// FeedMessage is what producers send to the feed endpoint. Values is
// always an array, even for a single push.
type FeedMessage struct {
	Command Command  `json:"command"`
	Key     string   `json:"key"`
	Values  []string `json:"values"`
}

func EncodeFeed(cmd Command, key string, values ...string) []byte {
	if values == nil {
		values = []string{}
	}
	return mustMarshal(FeedMessage{Command: cmd, Key: key, Values: values})
}
