package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/rai/internal/adapters/http/api"
	"github.com/okian/rai/internal/adapters/repository"
	"github.com/okian/rai/internal/app"
	"github.com/okian/rai/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// stubDeps is a canned-response implementation of api.Dependencies.
type stubDeps struct {
	submitErr error
	submitted []model.Play
	byPlay    map[string][]model.Result
	byAgent   map[string][]model.Result
	omissions []model.Omission
	entries   []api.Entry
}

func (s *stubDeps) Submit(_ context.Context, play model.Play) error {
	s.submitted = append(s.submitted, play)
	return s.submitErr
}

func (s *stubDeps) Results(_ context.Context, playID string) ([]model.Result, error) {
	if rows, ok := s.byPlay[playID]; ok {
		return rows, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubDeps) AgentResults(_ context.Context, agentID string) ([]model.Result, error) {
	if rows, ok := s.byAgent[agentID]; ok {
		return rows, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubDeps) Omissions(_ context.Context) []model.Omission {
	return s.omissions
}

func (s *stubDeps) TopN(_ context.Context, n int) ([]api.Entry, error) {
	if n > len(s.entries) {
		n = len(s.entries)
	}
	return s.entries[:n], nil
}

func (s *stubDeps) Rank(_ context.Context, agentID string) (api.Entry, error) {
	for _, e := range s.entries {
		if e.AgentID == agentID {
			return e, nil
		}
	}
	return api.Entry{}, repository.ErrNotFound
}

func (s *stubDeps) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true}
}

func newMux(deps *stubDeps) *http.ServeMux {
	mux := http.NewServeMux()
	srv := api.NewServer(deps, deps, api.WithMaxLeaderboardLimit(50))
	srv.Register(context.Background(), mux)
	return mux
}

const validPlayBody = `{
	"play_id": "play-1",
	"interval": 0.1,
	"target_x": 20.0,
	"agents": [
		{
			"agent_id": "wr1",
			"assignment": "route",
			"team": "home",
			"samples": [{"frame": 1, "x": 0, "y": 0}, {"frame": 2, "x": 0.5, "y": 0}]
		}
	]
}`

func TestPostPlay(t *testing.T) {
	Convey("Given the plays endpoint", t, func() {
		deps := &stubDeps{}
		mux := newMux(deps)

		Convey("When a valid play is posted", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/plays", strings.NewReader(validPlayBody)))

			Convey("Then it is accepted for async computation", func() {
				So(rec.Code, ShouldEqual, http.StatusAccepted)
				So(len(deps.submitted), ShouldEqual, 1)
				So(deps.submitted[0].PlayID, ShouldEqual, "play-1")
				So(deps.submitted[0].Trajectories[0].Interval, ShouldEqual, 0.1)
				So(deps.submitted[0].Context.Agents["wr1"].Assignment, ShouldEqual, "route")
			})
		})

		Convey("When the same play id was already submitted", func() {
			deps.submitErr = app.ErrDuplicatePlay
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/plays", strings.NewReader(validPlayBody)))

			Convey("Then the duplicate is acknowledged, not re-queued", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `"duplicate":true`)
			})
		})

		Convey("When the queue is saturated", func() {
			deps.submitErr = app.ErrQueueFull
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/plays", strings.NewReader(validPlayBody)))

			Convey("Then the caller is told to back off", func() {
				So(rec.Code, ShouldEqual, http.StatusTooManyRequests)
			})
		})

		Convey("When the body is not JSON", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/plays", strings.NewReader("not-json")))
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When required fields are missing", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/plays", strings.NewReader(`{"interval":0.1}`)))
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(rec.Body.String(), ShouldContainSubstring, "play_id")
		})

		Convey("When the method is not POST", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plays", nil))
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestGetResults(t *testing.T) {
	Convey("Given stored results and one omission", t, func() {
		deps := &stubDeps{
			byPlay: map[string][]model.Result{
				"play-1": {
					{PlayID: "play-1", AgentID: "wr1", Composite: 0.4},
					{PlayID: "play-1", AgentID: "cb7", Composite: 0.7,
						Warnings: []model.Warning{model.WarnMissingRelationalPartner}},
				},
			},
			byAgent: map[string][]model.Result{
				"wr1": {{PlayID: "play-1", AgentID: "wr1", Composite: 0.4}},
			},
			omissions: []model.Omission{{PlayID: "play-bad", Reason: "non-monotonic time index"}},
		}
		mux := newMux(deps)

		Convey("When querying a computed play", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/results?event=play-1", nil))

			Convey("Then all agent rows come back with a warning count", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var resp struct {
					Results  []model.Result `json:"results"`
					Warnings int            `json:"warnings"`
				}
				So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
				So(len(resp.Results), ShouldEqual, 2)
				So(resp.Warnings, ShouldEqual, 1)
			})
		})

		Convey("When querying an omitted play", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/results?event=play-bad", nil))

			Convey("Then the omission reason is served, not a 404", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `"omitted":true`)
				So(rec.Body.String(), ShouldContainSubstring, "non-monotonic")
			})
		})

		Convey("When querying an unknown play", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/results?event=ghost", nil))
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When querying by agent", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/results?agent=wr1", nil))
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, "wr1")
		})

		Convey("When neither or both selectors are given", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/results", nil))
			So(rec.Code, ShouldEqual, http.StatusBadRequest)

			rec = httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/results?event=a&agent=b", nil))
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestGetLeaderboardAndRank(t *testing.T) {
	Convey("Given a populated ranking", t, func() {
		deps := &stubDeps{
			entries: []api.Entry{
				{Rank: 1, AgentID: "cb7", PlayID: "play-2", Composite: 0.9},
				{Rank: 2, AgentID: "wr1", PlayID: "play-1", Composite: 0.8},
			},
		}
		mux := newMux(deps)

		Convey("When requesting the leaderboard", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leaderboard?limit=1", nil))

			Convey("Then the top entries are returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var entries []api.Entry
				So(json.Unmarshal(rec.Body.Bytes(), &entries), ShouldBeNil)
				So(len(entries), ShouldEqual, 1)
				So(entries[0].AgentID, ShouldEqual, "cb7")
			})
		})

		Convey("When the limit is invalid or excessive", func() {
			for _, target := range []string{"/leaderboard", "/leaderboard?limit=0", "/leaderboard?limit=billion", "/leaderboard?limit=51"} {
				rec := httptest.NewRecorder()
				mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			}
		})

		Convey("When requesting a known agent's rank", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rank/wr1", nil))

			So(rec.Code, ShouldEqual, http.StatusOK)
			var e api.Entry
			So(json.Unmarshal(rec.Body.Bytes(), &e), ShouldBeNil)
			So(e.Rank, ShouldEqual, 2)
		})

		Convey("When requesting an unknown agent's rank", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rank/ghost", nil))
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the rank path is malformed", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rank/", nil))
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestStatsAndHealth(t *testing.T) {
	Convey("Given the operational endpoints", t, func() {
		deps := &stubDeps{}
		mux := newMux(deps)

		Convey("Then stats serves the provider's map", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("Then healthz serves the metrics registry", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			So(rec.Code, ShouldEqual, http.StatusOK)
		})
	})
}
