package transport

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

type validator interface {
	Validate() error
}

// On subscribes fn to event, decoding each payload as T. Payloads that do
// not decode, or fail T's Validate method, are logged and dropped.
func On[T any](s Subscriber, event string, fn func(T)) {
	s.Subscribe(event, func(data json.RawMessage) {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			log.Warn().Err(err).Str("event", event).Msg("[transport] dropping undecodable payload")
			return
		}
		if vv, ok := any(v).(validator); ok {
			if err := vv.Validate(); err != nil {
				log.Warn().Err(err).Str("event", event).Msg("[transport] dropping invalid payload")
				return
			}
		}
		fn(v)
	})
}
