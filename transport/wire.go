package transport

import (
	"encoding/json"
	"io"

	"github.com/getlantern/kaleidoscope/state"
)

// envelope is the wire form of one advertisement, a single JSON document per
// line.
type envelope struct {
	From    string `json:"from"`
	TTL     int    `json:"ttl"`
	Payload string `json:"payload"`
}

func writeAdvertisement(w io.Writer, msg state.Advertisement) error {
	return json.NewEncoder(w).Encode(envelope{
		From:    msg.Sender.String(),
		TTL:     msg.TTL,
		Payload: msg.Payload,
	})
}

func readAdvertisement(dec *json.Decoder) (state.Advertisement, error) {
	var env envelope
	if err := dec.Decode(&env); err != nil {
		return state.Advertisement{}, err
	}
	return state.Advertisement{
		Sender:  state.NodeId(env.From),
		TTL:     env.TTL,
		Payload: env.Payload,
	}, nil
}
