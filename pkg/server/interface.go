/*
Package server implements msgpack IPC for the spelling engine.

The protocol is a request/response stream over stdin/stdout with binary
msgpack encoding. Every request carries an id, echoed in the response, and
an action selecting the operation.

Querying:

	{"id": "q1", "action": "suggest", "w": ["helo", "wrld"]}
	{"id": "q2", "action": "suggest_n", "w": ["helo"], "n": 5}

Requests carry no edit distance; every query uses the maximum distance the
server's speller was configured with.

The response lists the corrected token sequences ranked best first, with
timing info in microseconds:

	{"id": "q1", "s": [["hello", "world"]], "c": 1, "t": 210}

An empty suggestion list means the query needs no correction.

Writing:

	{"id": "w1", "action": "add_word", "w": ["hello"], "f": 10}
	{"id": "w2", "action": "add_pair", "w": ["new", "york"], "f": 3}
	{"id": "w3", "action": "remove_word", "w": ["hello"], "f": 4}
	{"id": "w4", "action": "flush"}

Phonetic keys:

	{"id": "k1", "action": "phonetic", "w": ["thomas"]}

Prefix management:

	{"id": "p1", "action": "enable_prefix", "p": "author:"}
	{"id": "p2", "action": "disable_prefix", "p": "author:"}

Writes buffer in the engine until a flush action commits them atomically;
cancel drops them.
*/
package server

// Request is the envelope for every client message.
type Request struct {
	ID     string   `msgpack:"id"`
	Action string   `msgpack:"action"`
	Words  []string `msgpack:"w,omitempty"`
	Prefix string   `msgpack:"p,omitempty"`
	Group  string   `msgpack:"g,omitempty"` // group prefix for enable_prefix
	Freq   uint64   `msgpack:"f,omitempty"`
	Count  int      `msgpack:"n,omitempty"`
}

// SuggestResponse answers suggest and suggest_n.
type SuggestResponse struct {
	ID          string     `msgpack:"id"`
	Suggestions [][]string `msgpack:"s"`
	Count       int        `msgpack:"c"`
	TimeTaken   int64      `msgpack:"t"`
}

// StatusResponse answers write and prefix actions.
type StatusResponse struct {
	ID     string `msgpack:"id"`
	Status string `msgpack:"status"`
	Error  string `msgpack:"error,omitempty"`
	Code   int    `msgpack:"code,omitempty"`
}
