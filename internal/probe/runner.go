package probe

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/deshmukhh/crease/pkg/logger"
)

// DefaultWorkers is the replay concurrency when none is given.
const DefaultWorkers = 4

// Run replays the configured question set and reports outcomes.
func Run(ctx context.Context, config Config) (*Stats, error) {
	log := logger.Get().Named("probe")

	questions := DefaultQuestions()
	if config.QuestionsFile != "" {
		loaded, err := LoadQuestions(config.QuestionsFile)
		if err != nil {
			return nil, err
		}
		questions = loaded
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("no questions to replay")
	}

	workers := config.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	client := NewClient(config.BaseURL, config.Timeout)
	if !client.Healthy() {
		return nil, fmt.Errorf("server at %s is not healthy", config.BaseURL)
	}

	path := "/ask"
	if config.ValidateOnly {
		path = "/ask/validate"
	}

	log.Info(ctx, "replaying questions",
		logger.String("baseURL", config.BaseURL),
		logger.String("path", path),
		logger.Int("questions", len(questions)),
		logger.Int("workers", workers))

	stats := &Stats{
		ByCode:    make(map[string]int),
		StartTime: time.Now(),
	}

	questionChan := make(chan string, workers)
	outcomeChan := make(chan Outcome, len(questions))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for question := range questionChan {
				select {
				case <-ctx.Done():
					return
				default:
					outcomeChan <- client.Ask(path, question)
				}
			}
		}()
	}

	go func() {
		defer close(questionChan)
		for _, question := range questions {
			select {
			case <-ctx.Done():
				return
			case questionChan <- question:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomeChan)
	}()

	for out := range outcomeChan {
		record(ctx, log, stats, out, config.Verbose)
	}

	stats.Duration = time.Since(stats.StartTime)
	report(ctx, log, stats)
	return stats, nil
}

func record(ctx context.Context, log logger.Logger, stats *Stats, out Outcome, verbose bool) {
	stats.Sent++
	switch {
	case out.Err != nil:
		stats.Failed++
		log.Warn(ctx, "question failed",
			logger.String("question", out.Question),
			logger.Error(out.Err))
	case out.Status == http.StatusOK:
		stats.Answered++
		if verbose {
			log.Info(ctx, "answered",
				logger.String("question", out.Question),
				logger.String("shape", out.Shape),
				logger.Int("rows", out.Rows),
				logger.String("narrative", out.Narrative))
		}
	case out.Status == http.StatusBadRequest:
		stats.Recoverable++
		stats.ByCode[out.Code]++
		if verbose {
			log.Info(ctx, "rejected",
				logger.String("question", out.Question),
				logger.String("code", out.Code))
		}
	case out.Status == http.StatusGatewayTimeout:
		stats.TimedOut++
		stats.ByCode[out.Code]++
	default:
		stats.Failed++
		stats.ByCode[out.Code]++
		log.Warn(ctx, "unexpected status",
			logger.String("question", out.Question),
			logger.Int("status", out.Status),
			logger.String("code", out.Code))
	}
}

func report(ctx context.Context, log logger.Logger, stats *Stats) {
	fields := []logger.Field{
		logger.Int("sent", stats.Sent),
		logger.Int("answered", stats.Answered),
		logger.Int("recoverable", stats.Recoverable),
		logger.Int("timedOut", stats.TimedOut),
		logger.Int("failed", stats.Failed),
		logger.Duration("duration", stats.Duration),
	}
	for code, n := range stats.ByCode {
		fields = append(fields, logger.Int("code_"+code, n))
	}
	log.Info(ctx, "replay complete", fields...)
}
