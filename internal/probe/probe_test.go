package probe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/deshmukhh/crease/pkg/logger"
)

func init() {
	_ = logger.Init()
}

func newStubServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/ask", func(w http.ResponseWriter, r *http.Request) {
		var req askRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch req.Question {
		case "hello there":
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(errorResponse{
				Code:    "UNRESOLVABLE_INTENT",
				Message: "the question names no entity and asks for no ranking",
			})
		case "slow question":
			w.WriteHeader(http.StatusGatewayTimeout)
			json.NewEncoder(w).Encode(errorResponse{Code: "QUERY_TIMEOUT"})
		default:
			json.NewEncoder(w).Encode(askResponse{
				Narrative: "V Kohli has a strike rate of 150.00.",
				Shape:     "single_entity",
				Rows:      []map[string]any{{"strike_rate": 150.0}},
			})
		}
	})
	return httptest.NewServer(mux)
}

func TestClient(t *testing.T) {
	Convey("Given a stub server", t, func() {
		srv := newStubServer()
		defer srv.Close()

		client := NewClient(srv.URL, time.Second)

		Convey("Healthy reports true", func() {
			So(client.Healthy(), ShouldBeTrue)
		})

		Convey("Healthy reports false for an unreachable server", func() {
			down := NewClient("http://127.0.0.1:1", 100*time.Millisecond)
			So(down.Healthy(), ShouldBeFalse)
		})

		Convey("An answered question carries narrative, shape, and rows", func() {
			out := client.Ask("/ask", "What is Kohli's strike rate?")
			So(out.Err, ShouldBeNil)
			So(out.Status, ShouldEqual, http.StatusOK)
			So(out.Shape, ShouldEqual, "single_entity")
			So(out.Rows, ShouldEqual, 1)
			So(out.Narrative, ShouldContainSubstring, "strike rate")
		})

		Convey("A rejected question carries the error code", func() {
			out := client.Ask("/ask", "hello there")
			So(out.Err, ShouldBeNil)
			So(out.Status, ShouldEqual, http.StatusBadRequest)
			So(out.Code, ShouldEqual, "UNRESOLVABLE_INTENT")
		})
	})
}

func TestLoadQuestions(t *testing.T) {
	Convey("Given a questions file", t, func() {
		path := filepath.Join(t.TempDir(), "questions.txt")
		content := "# replay set\n\nWhat is Kohli's strike rate?\n  Kohli vs Bumrah  \n"
		So(os.WriteFile(path, []byte(content), 0600), ShouldBeNil)

		Convey("Blank lines and comments are skipped, whitespace trimmed", func() {
			questions, err := LoadQuestions(path)
			So(err, ShouldBeNil)
			So(questions, ShouldResemble, []string{
				"What is Kohli's strike rate?",
				"Kohli vs Bumrah",
			})
		})

		Convey("A missing file returns an error", func() {
			_, err := LoadQuestions(filepath.Join(t.TempDir(), "absent.txt"))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a stub server and a mixed question set", t, func() {
		srv := newStubServer()
		defer srv.Close()

		path := filepath.Join(t.TempDir(), "questions.txt")
		content := "What is Kohli's strike rate?\nKohli vs Bumrah\nhello there\nslow question\n"
		So(os.WriteFile(path, []byte(content), 0600), ShouldBeNil)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("Run classifies each outcome", func() {
			stats, err := Run(ctx, Config{
				BaseURL:       srv.URL,
				QuestionsFile: path,
				Workers:       2,
				Timeout:       time.Second,
			})
			So(err, ShouldBeNil)
			So(stats.Sent, ShouldEqual, 4)
			So(stats.Answered, ShouldEqual, 2)
			So(stats.Recoverable, ShouldEqual, 1)
			So(stats.TimedOut, ShouldEqual, 1)
			So(stats.Failed, ShouldEqual, 0)
			So(stats.ByCode["UNRESOLVABLE_INTENT"], ShouldEqual, 1)
		})

		Convey("Run fails fast when the server is unreachable", func() {
			_, err := Run(ctx, Config{
				BaseURL: "http://127.0.0.1:1",
				Timeout: 100 * time.Millisecond,
			})
			So(err, ShouldNotBeNil)
		})

		Convey("The built-in set is non-empty", func() {
			So(len(DefaultQuestions()), ShouldBeGreaterThan, 0)
		})
	})
}
