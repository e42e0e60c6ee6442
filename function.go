// Package saka exposes the keyword run as Cloud Functions entry points.
// ExtractAndUploadKeywords serves HTTP triggers and
// ExtractAndUploadKeywordsPubSub serves Pub/Sub triggers.
package saka

import (
	"context"
	"fmt"
	"net/http"
	gosync "sync"

	"github.com/homemade/saka/internal/config"
	"github.com/homemade/saka/internal/logging"
	"github.com/homemade/saka/keywords"
)

const (
	TriggerTypeHTTP   = "http"
	TriggerTypePubSub = "pubsub"
)

// PubSubMessage is the payload of a Pub/Sub event.
type PubSubMessage struct {
	Data       []byte            `json:"data"`
	Attributes map[string]string `json:"attributes"`
}

type keywordRunner interface {
	ExtractAndUploadKeywords(ctx context.Context, trigger keywords.Trigger) (string, error)
}

var (
	runnerOnce gosync.Once
	runner     keywordRunner
	runnerErr  error

	newRunner = func() (keywordRunner, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		logger, err := logging.New(cfg.Logging)
		if err != nil {
			return nil, err
		}
		return keywords.NewPipeline(logger), nil
	}
)

// sharedRunner builds the pipeline on first use; instances are reused
// across invocations.
func sharedRunner() (keywordRunner, error) {
	runnerOnce.Do(func() {
		runner, runnerErr = newRunner()
	})
	return runner, runnerErr
}

// ExtractAndUploadKeywords responds with the run message, or 500 and the
// error text when the run fails.
func ExtractAndUploadKeywords(w http.ResponseWriter, r *http.Request) {
	rn, err := sharedRunner()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	trigger := keywords.Trigger{Type: TriggerTypeHTTP, ID: r.Header.Get("X-Cloud-Trace-Context")}
	message, err := rn.ExtractAndUploadKeywords(r.Context(), trigger)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, message)
}

// ExtractAndUploadKeywordsPubSub ignores the message content; any message
// on the topic starts a run.
func ExtractAndUploadKeywordsPubSub(ctx context.Context, m PubSubMessage) error {
	rn, err := sharedRunner()
	if err != nil {
		return err
	}
	_, err = rn.ExtractAndUploadKeywords(ctx, keywords.Trigger{Type: TriggerTypePubSub, ID: m.Attributes["messageId"]})
	return err
}
