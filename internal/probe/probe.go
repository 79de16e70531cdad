// Package probe replays a set of natural-language questions against a
// running server and reports how each one was answered.
package probe

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// Config holds probe settings.
type Config struct {
	BaseURL       string
	QuestionsFile string
	Workers       int
	Timeout       time.Duration
	ValidateOnly  bool
	Verbose       bool
}

// Stats accumulates replay outcomes.
type Stats struct {
	Sent        int
	Answered    int
	Recoverable int
	TimedOut    int
	Failed      int
	ByCode      map[string]int
	StartTime   time.Time
	Duration    time.Duration
}

// Outcome classifies a single question's result.
type Outcome struct {
	Question  string
	Status    int
	Code      string
	Narrative string
	Shape     string
	Rows      int
	Err       error
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Narrative string           `json:"narrative"`
	Shape     string           `json:"intent_shape"`
	Rows      []map[string]any `json:"rows"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Client is a thin JSON client for the question endpoints.
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient returns a client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Healthy reports whether the server's health endpoint responds.
func (c *Client) Healthy() bool {
	resp, err := c.http.Get(c.baseURL + "/healthz")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Ask submits one question and classifies the result.
func (c *Client) Ask(path, question string) Outcome {
	out := Outcome{Question: question}

	body, err := json.Marshal(askRequest{Question: question})
	if err != nil {
		out.Err = fmt.Errorf("marshal request: %w", err)
		return out
	}

	resp, err := c.http.Post(c.baseURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		out.Err = fmt.Errorf("post question: %w", err)
		return out
	}
	defer resp.Body.Close()

	out.Status = resp.StatusCode
	dec := json.NewDecoder(resp.Body)

	if resp.StatusCode == http.StatusOK {
		var ans askResponse
		if err := dec.Decode(&ans); err != nil {
			out.Err = fmt.Errorf("decode answer: %w", err)
			return out
		}
		out.Narrative = ans.Narrative
		out.Shape = ans.Shape
		out.Rows = len(ans.Rows)
		return out
	}

	var er errorResponse
	if err := dec.Decode(&er); err == nil {
		out.Code = er.Code
	}
	return out
}

// LoadQuestions reads one question per line, skipping blanks and # comments.
func LoadQuestions(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open questions file: %w", err)
	}
	defer f.Close()

	var questions []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		questions = append(questions, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read questions file: %w", err)
	}
	return questions, nil
}

// DefaultQuestions is the built-in replay set used when no file is given.
// It covers each intent shape plus a few that should fail cleanly.
func DefaultQuestions() []string {
	return []string{
		"What is V Kohli's strike rate?",
		"How many runs has MS Dhoni scored?",
		"Kohli vs Bumrah",
		"How does Kohli fare against spin in the death overs?",
		"Who scored the most runs in 2018?",
		"Top 5 bowlers by economy with minimum 50 balls",
		"Show Kohli's strike rate by phase",
		"Compare Kohli and Dhoni on strike rate",
		"Royal Challengers Bangalore vs Chennai Super Kings head to head",
		"Who has the best average at Wankhede Stadium?",
		"Sharma's strike rate in the powerplay",
		"hello there",
	}
}
