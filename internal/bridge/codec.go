package bridge

import (
	"bufio"
	"encoding/json"
	"io"
)

// outboundCommand is the wire shape of a command sent to the engine's
// stdin: {"op":"place|cancel|…","corr":<uint64>, …params}.
type outboundCommand struct {
	Op     string                 `json:"op"`
	Corr   uint64                 `json:"corr"`
	Params map[string]interface{} `json:"-"`
}

// MarshalJSON flattens Params alongside op/corr, matching spec 6's engine
// wire format where command parameters are top-level fields, not nested.
func (c outboundCommand) MarshalJSON() ([]byte, error) {
	flat := make(map[string]interface{}, len(c.Params)+2)
	for k, v := range c.Params {
		flat[k] = v
	}
	flat["op"] = c.Op
	flat["corr"] = c.Corr
	return json.Marshal(flat)
}

// inboundMessage is the wire shape of a line read from the engine's
// stdout: either a reply (carries "corr") or an event (carries "type").
type inboundMessage struct {
	Corr *uint64         `json:"corr"`
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// decodeInbound parses a single NDJSON line from the engine.
func decodeInbound(line []byte) (inboundMessage, error) {
	var msg inboundMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return inboundMessage{}, err
	}
	msg.Raw = append(json.RawMessage(nil), line...)
	return msg, nil
}

// encodeOutbound renders a command as a single NDJSON line, newline
// included, ready to write directly to the engine's stdin.
func encodeOutbound(op string, corr uint64, params map[string]interface{}) ([]byte, error) {
	body, err := json.Marshal(outboundCommand{Op: op, Corr: corr, Params: params})
	if err != nil {
		return nil, err
	}
	return append(body, '\n'), nil
}

// newLineScanner wraps r in a bufio.Scanner configured for long NDJSON
// lines (engine snapshots can be large).
func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 8*1024*1024)
	return scanner
}
