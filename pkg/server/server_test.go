package server

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/bastiangx/spellserve/pkg/config"
	"github.com/bastiangx/spellserve/pkg/speller"
	"github.com/bastiangx/spellserve/pkg/spelling"
	"github.com/bastiangx/spellserve/pkg/store"
)

// runRequests feeds encoded requests through a fresh server and returns the
// decoder positioned at the first response.
func runRequests(t *testing.T, requests []Request) *msgpack.Decoder {
	t.Helper()

	table := spelling.NewTable(store.NewMemStore(), spelling.IndexNGram)
	sp := speller.New(table, speller.Options{MaxDistance: 2, Language: "english"})
	cfg := config.DefaultConfig()

	var in, out bytes.Buffer
	enc := msgpack.NewEncoder(&in)
	for _, r := range requests {
		require.NoError(t, enc.Encode(&r))
	}

	srv := New(table, sp, cfg, &in, &out)
	for range requests {
		require.NoError(t, srv.processRequest())
	}
	if err := srv.processRequest(); err != io.EOF {
		t.Fatalf("expected EOF after last request, got %v", err)
	}
	return msgpack.NewDecoder(&out)
}

func TestServerRoundTrip(t *testing.T) {
	dec := runRequests(t, []Request{
		{ID: "w1", Action: "add_word", Words: []string{"hello"}, Freq: 100},
		{ID: "w2", Action: "add_word", Words: []string{"world"}, Freq: 100},
		{ID: "w3", Action: "flush"},
		{ID: "q1", Action: "suggest", Words: []string{"helo"}},
	})

	for _, id := range []string{"w1", "w2", "w3"} {
		var status StatusResponse
		require.NoError(t, dec.Decode(&status))
		assert.Equal(t, id, status.ID)
		assert.Equal(t, "ok", status.Status)
	}

	var response SuggestResponse
	require.NoError(t, dec.Decode(&response))
	assert.Equal(t, "q1", response.ID)
	require.Equal(t, 1, response.Count)
	assert.Equal(t, []string{"hello"}, response.Suggestions[0])
}

func TestServerValidation(t *testing.T) {
	dec := runRequests(t, []Request{
		{ID: "bad1", Action: "suggest"},
		{ID: "bad2", Action: "frobnicate"},
		{ID: "bad3", Action: "add_pair", Words: []string{"lonely"}},
	})

	for _, id := range []string{"bad1", "bad2", "bad3"} {
		var status StatusResponse
		require.NoError(t, dec.Decode(&status))
		assert.Equal(t, id, status.ID)
		assert.Equal(t, "error", status.Status)
		assert.Equal(t, 400, status.Code)
	}
}

func TestServerPrefixLifecycle(t *testing.T) {
	dec := runRequests(t, []Request{
		{ID: "p1", Action: "enable_prefix", Prefix: "author:"},
		{ID: "w1", Action: "add_word", Words: []string{"austen"}, Freq: 50, Prefix: "author:"},
		{ID: "f1", Action: "flush"},
		{ID: "q1", Action: "suggest", Words: []string{"austn"}, Prefix: "author:"},
		{ID: "p2", Action: "disable_prefix", Prefix: "author:"},
		{ID: "q2", Action: "suggest", Words: []string{"austn"}, Prefix: "author:"},
	})

	var status StatusResponse
	for _, id := range []string{"p1", "w1", "f1"} {
		require.NoError(t, dec.Decode(&status))
		assert.Equal(t, id, status.ID)
		assert.Equal(t, "ok", status.Status)
	}

	var enabled SuggestResponse
	require.NoError(t, dec.Decode(&enabled))
	require.Equal(t, 1, enabled.Count)
	assert.Equal(t, []string{"austen"}, enabled.Suggestions[0])

	require.NoError(t, dec.Decode(&status))
	assert.Equal(t, "p2", status.ID)

	var disabled SuggestResponse
	require.NoError(t, dec.Decode(&disabled))
	assert.Zero(t, disabled.Count, "disabled prefix must suggest nothing")
}
