package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/okian/eduquest/internal/adapters/http/api"
	service "github.com/okian/eduquest/internal/app"
	"github.com/okian/eduquest/internal/domain/achievement"
	"github.com/okian/eduquest/internal/domain/insight"
	"github.com/okian/eduquest/internal/domain/question"
	"github.com/okian/eduquest/internal/domain/types"
	"github.com/okian/eduquest/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const secret = "test-secret"

func init() {
	_ = logger.Init()
}

func newMux(svc *service.Service, opts ...api.Option) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(svc, opts...).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func sign(claims jwt.MapClaims, key string) string {
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	So(err, ShouldBeNil)
	return s
}

func errorCode(w *httptest.ResponseRecorder) string {
	var body struct {
		Code string `json:"code"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body.Code
}

func TestUserRoutes(t *testing.T) {
	Convey("Given an API without authentication", t, func() {
		svc := service.New()
		mux := newMux(svc)

		w := do(mux, "POST", "/users", `{"id":"u1","name":"Ana"}`, "")
		So(w.Code, ShouldEqual, http.StatusCreated)

		Convey("A registered user can be fetched", func() {
			w := do(mux, "GET", "/users/u1", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var p types.Profile
			So(json.Unmarshal(w.Body.Bytes(), &p), ShouldBeNil)
			So(p.ID, ShouldEqual, "u1")
			So(p.Credits, ShouldEqual, 100)
			So(p.Level, ShouldEqual, 1)
			So(p.CanChat, ShouldBeTrue)
			So(w.Body.String(), ShouldContainSubstring, `"can_chat":true`)
		})

		Convey("Unknown users are 404", func() {
			w := do(mux, "GET", "/users/ghost", "", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(errorCode(w), ShouldEqual, "user_not_found")
		})

		Convey("Registering a taken id is 409", func() {
			w := do(mux, "POST", "/users", `{"id":"u1","name":"Again"}`, "")
			So(w.Code, ShouldEqual, http.StatusConflict)
		})

		Convey("Registering without a name is 400", func() {
			w := do(mux, "POST", "/users", `{"id":"u2"}`, "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Registering without an id generates one", func() {
			w := do(mux, "POST", "/users", `{"name":"Anon"}`, "")
			So(w.Code, ShouldEqual, http.StatusCreated)
			var p types.Profile
			So(json.Unmarshal(w.Body.Bytes(), &p), ShouldBeNil)
			So(p.ID, ShouldNotBeEmpty)
		})

		Convey("Spending within balance succeeds", func() {
			w := do(mux, "POST", "/users/u1/spend", `{"amount":30}`, "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var p types.Profile
			So(json.Unmarshal(w.Body.Bytes(), &p), ShouldBeNil)
			So(p.Credits, ShouldEqual, 70)
		})

		Convey("Overspending is 402", func() {
			w := do(mux, "POST", "/users/u1/spend", `{"amount":500}`, "")
			So(w.Code, ShouldEqual, http.StatusPaymentRequired)
			So(errorCode(w), ShouldEqual, "insufficient_credits")
		})

		Convey("A non-positive amount is 400", func() {
			w := do(mux, "POST", "/users/u1/spend", `{"amount":0}`, "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Insights start empty", func() {
			w := do(mux, "GET", "/users/u1/insights", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var snap insight.Snapshot
			So(json.Unmarshal(w.Body.Bytes(), &snap), ShouldBeNil)
			So(snap.VocationalInterests, ShouldBeEmpty)
			So(snap.IsExhausted, ShouldBeFalse)
			So(w.Body.String(), ShouldContainSubstring, `"vocational_interests":[]`)
		})
	})
}

func TestEventRoutes(t *testing.T) {
	Convey("Given an API with a registered user", t, func() {
		svc := service.New()
		mux := newMux(svc)
		So(do(mux, "POST", "/users", `{"id":"u1","name":"Ana"}`, "").Code, ShouldEqual, http.StatusCreated)

		Convey("Recording an answer returns the new counters", func() {
			w := do(mux, "POST", "/events",
				`{"event_id":"e1","user_id":"u1","kind":"question_answered","payload":{"question_id":"q1","category":"vocational","answer":"me gusta la carrera"}}`, "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var res types.Result
			So(json.Unmarshal(w.Body.Bytes(), &res), ShouldBeNil)
			So(res.EventID, ShouldEqual, "e1")
			So(res.Credits, ShouldEqual, 110)
			So(res.Experience, ShouldEqual, 20)
			So(res.Points, ShouldEqual, 10)
			So(res.Duplicate, ShouldBeFalse)

			Convey("and replaying it is reported as a duplicate", func() {
				w := do(mux, "POST", "/events",
					`{"event_id":"e1","user_id":"u1","kind":"question_answered","payload":{"question_id":"q1","category":"vocational"}}`, "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var res types.Result
				So(json.Unmarshal(w.Body.Bytes(), &res), ShouldBeNil)
				So(res.Duplicate, ShouldBeTrue)
				So(res.Credits, ShouldEqual, 110)
			})

			Convey("and insights reflect it", func() {
				w := do(mux, "GET", "/users/u1/insights", "", "")
				So(w.Body.String(), ShouldContainSubstring, "Tecnología")
			})
		})

		Convey("Unknown kinds are accepted and ignored", func() {
			w := do(mux, "POST", "/events", `{"user_id":"u1","kind":"dance_performed"}`, "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"ignored":true`)
		})

		Convey("Malformed bodies are 400", func() {
			So(do(mux, "POST", "/events", `{`, "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, "POST", "/events", `{"user_id":"u1"}`, "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, "POST", "/events", `{"kind":"chat_message_sent"}`, "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, "POST", "/events", `{"user_id":"u1","kind":"question_answered","payload":{}}`, "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, "POST", "/events", `{"user_id":"u1","kind":"chat_message_sent","ts":"yesterday"}`, "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, "POST", "/events", `{"user_id":"u1","kind":"question_answered","payload":{"question_id":"q","category":"emotional"},"emotional_variability":11}`, "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Unknown activities are 404 and unknown users are 404", func() {
			w := do(mux, "POST", "/events", `{"user_id":"u1","kind":"activity_completed","payload":{"activity_id":42}}`, "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(errorCode(w), ShouldEqual, "activity_not_found")

			w = do(mux, "POST", "/events", `{"user_id":"ghost","kind":"chat_message_sent"}`, "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Async submission before start is a server error", func() {
			w := do(mux, "POST", "/events/async", `{"user_id":"u1","kind":"chat_message_sent"}`, "")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
		})

		Convey("Async submission after start is accepted once", func() {
			ctx := context.Background()
			So(svc.Start(ctx), ShouldBeNil)

			w := do(mux, "POST", "/events/async", `{"event_id":"a1","user_id":"u1","kind":"chat_message_sent"}`, "")
			So(w.Code, ShouldEqual, http.StatusAccepted)
			So(w.Body.String(), ShouldContainSubstring, `"accepted"`)

			w = do(mux, "POST", "/events/async", `{"event_id":"a1","user_id":"u1","kind":"chat_message_sent"}`, "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"duplicate":true`)

			So(svc.Stop(ctx), ShouldBeNil)
			w = do(mux, "GET", "/users/u1", "", "")
			So(w.Body.String(), ShouldContainSubstring, `"points":5`)
		})
	})
}

func TestReadRoutes(t *testing.T) {
	Convey("Given an API with three users", t, func() {
		svc := service.New()
		mux := newMux(svc)
		for _, id := range []string{"a", "b", "c"} {
			So(do(mux, "POST", "/users", `{"id":"`+id+`","name":"`+id+`"}`, "").Code, ShouldEqual, http.StatusCreated)
		}
		So(do(mux, "POST", "/events", `{"user_id":"b","kind":"activity_completed","payload":{"activity_id":1}}`, "").Code, ShouldEqual, http.StatusOK)

		Convey("The leaderboard ranks by points", func() {
			w := do(mux, "GET", "/leaderboard?limit=2", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var entries []types.Entry
			So(json.Unmarshal(w.Body.Bytes(), &entries), ShouldBeNil)
			So(entries, ShouldHaveLength, 2)
			So(entries[0].UserID, ShouldEqual, "b")
			So(entries[0].Rank, ShouldEqual, 1)
			So(entries[0].Points, ShouldEqual, 50)
			So(entries[1].Rank, ShouldEqual, 2)
		})

		Convey("A missing limit uses the default", func() {
			w := do(mux, "GET", "/leaderboard", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var entries []types.Entry
			So(json.Unmarshal(w.Body.Bytes(), &entries), ShouldBeNil)
			So(entries, ShouldHaveLength, 3)
		})

		Convey("An invalid limit is 400", func() {
			So(do(mux, "GET", "/leaderboard?limit=abc", "", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, "GET", "/leaderboard?limit=0", "", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Activities are listed", func() {
			w := do(mux, "GET", "/activities", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"points":100`)
		})

		Convey("Stats and metrics are served", func() {
			w := do(mux, "GET", "/stats", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"totalUsers":3`)

			w = do(mux, "GET", "/healthz", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "eduquest_gamification")
		})

		Convey("Wrong methods are rejected", func() {
			So(do(mux, "POST", "/leaderboard", `{}`, "").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestQuestionAndAchievementRoutes(t *testing.T) {
	Convey("Given an API with a registered user", t, func() {
		svc := service.New()
		mux := newMux(svc)
		So(do(mux, "POST", "/users", `{"id":"u1","name":"Ana"}`, "").Code, ShouldEqual, http.StatusCreated)

		Convey("The question bank is listed by level", func() {
			w := do(mux, "GET", "/questions?level=highschool", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var qs []question.Question
			So(json.Unmarshal(w.Body.Bytes(), &qs), ShouldBeNil)
			So(qs, ShouldHaveLength, 5)
			So(qs[0].ID, ShouldEqual, "6")

			w = do(mux, "GET", "/questions?level=kindergarten", "", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("An answer without a category takes it from the bank", func() {
			w := do(mux, "POST", "/events", `{"user_id":"u1","kind":"question_answered","payload":{"question_id":"3","answer":"cansado"},"emotional_variability":1}`, "")
			So(w.Code, ShouldEqual, http.StatusOK)

			w = do(mux, "GET", "/users/u1/insights", "", "")
			var snap insight.Snapshot
			So(json.Unmarshal(w.Body.Bytes(), &snap), ShouldBeNil)
			So(snap.IsExhausted, ShouldBeTrue)
			So(snap.EmotionalVariability, ShouldEqual, 1.0)

			Convey("And it is no longer suggested", func() {
				w := do(mux, "GET", "/users/u1/questions", "", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var qs []question.Question
				So(json.Unmarshal(w.Body.Bytes(), &qs), ShouldBeNil)
				So(qs, ShouldHaveLength, 4)
				for _, q := range qs {
					So(q.ID, ShouldNotEqual, "3")
				}
			})
		})

		Convey("An answer to an unresolvable question without a category is 400", func() {
			w := do(mux, "POST", "/events", `{"user_id":"u1","kind":"question_answered","payload":{"question_id":"q-99"}}`, "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Suggestions for unknown users are 404", func() {
			So(do(mux, "GET", "/users/ghost/questions", "", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Achievements follow chat activity", func() {
			w := do(mux, "GET", "/users/u1/achievements", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldNotContainSubstring, `"is_unlocked":true`)

			So(do(mux, "POST", "/events", `{"user_id":"u1","kind":"chat_message_sent","payload":{"text":"hola"}}`, "").Code, ShouldEqual, http.StatusOK)

			w = do(mux, "GET", "/users/u1/achievements", "", "")
			var list []achievement.Achievement
			So(json.Unmarshal(w.Body.Bytes(), &list), ShouldBeNil)
			So(list, ShouldHaveLength, 3)
			So(achievement.Unlocked(list), ShouldResemble, []string{achievement.FirstMessage})
		})

		Convey("Achievements for unknown users are 404", func() {
			So(do(mux, "GET", "/users/ghost/achievements", "", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestAuthentication(t *testing.T) {
	Convey("Given an API with JWT authentication", t, func() {
		svc := service.New()
		mux := newMux(svc, api.WithJWTSecret(secret))
		token := sign(jwt.MapClaims{"sub": "u1"}, secret)

		So(do(mux, "POST", "/users", `{"name":"Ana"}`, token).Code, ShouldEqual, http.StatusCreated)

		Convey("Requests without a token are 401", func() {
			So(do(mux, "GET", "/users/u1", "", "").Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("Tokens signed with another key are 401", func() {
			bad := sign(jwt.MapClaims{"sub": "u1"}, "other")
			So(do(mux, "GET", "/users/u1", "", bad).Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("Tokens without a subject are 401", func() {
			bad := sign(jwt.MapClaims{"role": "student"}, secret)
			So(do(mux, "GET", "/users/u1", "", bad).Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("The subject reaches its own resources", func() {
			w := do(mux, "GET", "/users/u1", "", token)
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("The userId claim is accepted", func() {
			alt := sign(jwt.MapClaims{"userId": "u1"}, secret)
			So(do(mux, "GET", "/users/u1", "", alt).Code, ShouldEqual, http.StatusOK)
		})

		Convey("Other users' resources are 403", func() {
			So(do(mux, "GET", "/users/u2", "", token).Code, ShouldEqual, http.StatusForbidden)
			So(do(mux, "POST", "/users/u2/spend", `{"amount":1}`, token).Code, ShouldEqual, http.StatusForbidden)
			So(do(mux, "GET", "/users/u2/achievements", "", token).Code, ShouldEqual, http.StatusForbidden)
			So(do(mux, "GET", "/users/u2/questions", "", token).Code, ShouldEqual, http.StatusForbidden)
		})

		Convey("Events take the user from the token", func() {
			w := do(mux, "POST", "/events", `{"kind":"chat_message_sent"}`, token)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"user_id":"u1"`)

			w = do(mux, "POST", "/events", `{"user_id":"u2","kind":"chat_message_sent"}`, token)
			So(w.Code, ShouldEqual, http.StatusForbidden)
		})

		Convey("Public routes need no token", func() {
			So(do(mux, "GET", "/leaderboard", "", "").Code, ShouldEqual, http.StatusOK)
			So(do(mux, "GET", "/activities", "", "").Code, ShouldEqual, http.StatusOK)
			So(do(mux, "GET", "/questions", "", "").Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestOpError(t *testing.T) {
	Convey("Operation errors keep their kind and cause", t, func() {
		cause := api.ErrForbidden
		err := api.WrapKind("api.op", api.ErrBadRequest, cause)
		So(err.Error(), ShouldEqual, "api.op: bad request: forbidden")
		So(api.Wrap("api.op", nil), ShouldBeNil)
		So(api.NewKind("api.op", api.ErrBackpressure).Error(), ShouldEqual, "api.op: backpressure")
	})
}
