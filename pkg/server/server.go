package server

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/bastiangx/spellserve/pkg/config"
	"github.com/bastiangx/spellserve/pkg/speller"
	"github.com/bastiangx/spellserve/pkg/spelling"
)

// Server handles spelling requests over a msgpack stream.
type Server struct {
	table   *spelling.Table
	speller *speller.Speller
	config  *config.Config

	decoder *msgpack.Decoder
	encoder *msgpack.Encoder

	writeMutex   sync.Mutex
	requestCount int64
}

// New creates a server reading requests from in and writing responses to
// out.
func New(table *spelling.Table, sp *speller.Speller, cfg *config.Config, in io.Reader, out io.Writer) *Server {
	return &Server{
		table:   table,
		speller: sp,
		config:  cfg,
		decoder: msgpack.NewDecoder(in),
		encoder: msgpack.NewEncoder(out),
	}
}

// Start processes requests until the client disconnects.
func (s *Server) Start() error {
	log.Debug("Starting msgpack spelling server")

	for {
		if err := s.processRequest(); err != nil {
			if err == io.EOF {
				log.Debug("Client disconnected")
				return nil
			}
			log.Debugf("Request error: %v", err)
		}
	}
}

func (s *Server) processRequest() error {
	var request Request
	if err := s.decoder.Decode(&request); err != nil {
		return err
	}
	s.requestCount++
	if s.requestCount%1000 == 0 {
		log.Debugf("processed %d requests", s.requestCount)
	}

	switch request.Action {
	case "suggest", "suggest_n":
		return s.handleSuggest(&request)
	case "phonetic":
		if len(request.Words) == 0 {
			return s.sendError(request.ID, "empty word list", 400)
		}
		return s.send(&SuggestResponse{
			ID:          request.ID,
			Suggestions: [][]string{{s.speller.Phonetic(request.Words[0])}},
			Count:       1,
		})
	case "add_word", "remove_word", "add_pair", "remove_pair":
		return s.handleWrite(&request)
	case "enable_prefix", "disable_prefix":
		return s.handlePrefix(&request)
	case "flush":
		if err := s.table.Flush(); err != nil {
			return s.sendError(request.ID, err.Error(), 500)
		}
		return s.sendStatus(request.ID)
	case "cancel":
		s.table.Cancel()
		return s.sendStatus(request.ID)
	default:
		return s.sendError(request.ID, fmt.Sprintf("unknown action %q", request.Action), 400)
	}
}

func (s *Server) validateWords(request *Request) string {
	if len(request.Words) == 0 {
		return "empty word list"
	}
	if len(request.Words) > s.config.Server.MaxTokens {
		return fmt.Sprintf("too many tokens (max: %d)", s.config.Server.MaxTokens)
	}
	for _, w := range request.Words {
		if len(w) > s.config.Server.MaxWordLen {
			return fmt.Sprintf("word too long (max: %d)", s.config.Server.MaxWordLen)
		}
	}
	return ""
}

func (s *Server) handleSuggest(request *Request) error {
	if msg := s.validateWords(request); msg != "" {
		return s.sendError(request.ID, msg, 400)
	}

	count := request.Count
	if count <= 0 {
		count = 1
	}
	if count > s.config.Server.MaxLimit {
		count = s.config.Server.MaxLimit
	}

	start := time.Now()
	var suggestions [][]string
	var err error
	if request.Action == "suggest_n" {
		suggestions, err = s.speller.SuggestN(request.Words, count, request.Prefix)
	} else {
		var words []string
		words, err = s.speller.Suggest(request.Words, request.Prefix)
		if len(words) > 0 {
			suggestions = [][]string{words}
		}
	}
	if err != nil {
		return s.sendError(request.ID, err.Error(), 500)
	}

	return s.send(&SuggestResponse{
		ID:          request.ID,
		Suggestions: suggestions,
		Count:       len(suggestions),
		TimeTaken:   time.Since(start).Microseconds(),
	})
}

func (s *Server) handleWrite(request *Request) error {
	if len(request.Words) == 0 {
		return s.sendError(request.ID, "empty word list", 400)
	}
	freq := request.Freq
	if freq == 0 {
		freq = 1
	}

	var err error
	switch request.Action {
	case "add_word":
		err = s.table.AddWord(request.Words[0], freq, request.Prefix)
	case "remove_word":
		err = s.table.RemoveWord(request.Words[0], freq, request.Prefix)
	case "add_pair", "remove_pair":
		if len(request.Words) < 2 {
			return s.sendError(request.ID, "pair actions need two words", 400)
		}
		if request.Action == "add_pair" {
			err = s.table.AddWordPair(request.Words[0], request.Words[1], freq, request.Prefix)
		} else {
			err = s.table.RemoveWordPair(request.Words[0], request.Words[1], freq, request.Prefix)
		}
	}
	if err != nil {
		return s.sendError(request.ID, err.Error(), 500)
	}
	return s.sendStatus(request.ID)
}

func (s *Server) handlePrefix(request *Request) error {
	if request.Prefix == "" {
		return s.sendError(request.ID, "empty prefix", 400)
	}

	var err error
	if request.Action == "enable_prefix" {
		err = s.table.EnableSpelling(request.Prefix, request.Group)
	} else {
		err = s.table.DisableSpelling(request.Prefix)
	}
	if err != nil {
		return s.sendError(request.ID, err.Error(), 500)
	}
	return s.sendStatus(request.ID)
}

func (s *Server) send(response any) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	return s.encoder.Encode(response)
}

func (s *Server) sendStatus(id string) error {
	return s.send(&StatusResponse{ID: id, Status: "ok"})
}

func (s *Server) sendError(id, message string, code int) error {
	log.Debugf("Request %s failed: %s", id, message)
	return s.send(&StatusResponse{ID: id, Status: "error", Error: message, Code: code})
}
