package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/okian/eduquest/internal/adapters/repository"
	"github.com/okian/eduquest/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var errRejected = errors.New("rejected")

// storeContract exercises the behaviour every Store must share. ids are
// prefixed so runs against a shared database do not collide.
func storeContract(newStore func() repository.Store) {
	ctx := context.Background()
	prefix := uuid.NewString()[:8] + "-"
	id := func(s string) string { return prefix + s }

	Convey("Given a store with one user", func() {
		s := newStore()
		now := time.Now().UTC().Truncate(time.Microsecond)
		So(s.CreateUser(ctx, model.NewUser(id("u1"), "Ana", 100, now)), ShouldBeNil)

		Convey("When creating the same user again", func() {
			err := s.CreateUser(ctx, model.NewUser(id("u1"), "Ana", 100, now))
			So(errors.Is(err, repository.ErrUserExists), ShouldBeTrue)
		})

		Convey("When reading the user", func() {
			u, err := s.GetUser(ctx, id("u1"))
			So(err, ShouldBeNil)
			So(u.Name, ShouldEqual, "Ana")
			So(u.Credits, ShouldEqual, 100)
			So(u.Level, ShouldEqual, 1)
			So(u.CreatedAt.Equal(now), ShouldBeTrue)
		})

		Convey("When reading an unknown user", func() {
			_, err := s.GetUser(ctx, id("ghost"))
			So(errors.Is(err, repository.ErrUserNotFound), ShouldBeTrue)
			_, err = s.ListEvents(ctx, id("ghost"))
			So(errors.Is(err, repository.ErrUserNotFound), ShouldBeTrue)
		})

		Convey("When updating with an event", func() {
			v := 2.5
			e := model.Event{
				ID: id("e1"), UserID: id("u1"), Kind: model.KindQuestionAnswered,
				Payload:              model.Payload{QuestionID: "q1", Category: "emotional"},
				EmotionalVariability: &v,
				TS:                   now,
			}
			u, err := s.UpdateUser(ctx, id("u1"), &e, func(u *model.User) error {
				u.Points += 10
				return nil
			})

			Convey("Then the user and the event log are both updated", func() {
				So(err, ShouldBeNil)
				So(u.Points, ShouldEqual, 10)
				events, err := s.ListEvents(ctx, id("u1"))
				So(err, ShouldBeNil)
				So(events, ShouldHaveLength, 1)
				So(events[0].Payload.Category, ShouldEqual, "emotional")
				So(*events[0].EmotionalVariability, ShouldEqual, 2.5)
			})

			Convey("Then replaying the event id is rejected without mutation", func() {
				_, err := s.UpdateUser(ctx, id("u1"), &e, func(u *model.User) error {
					u.Points += 10
					return nil
				})
				So(errors.Is(err, repository.ErrDuplicateEvent), ShouldBeTrue)
				got, _ := s.GetUser(ctx, id("u1"))
				So(got.Points, ShouldEqual, 10)
			})
		})

		Convey("When the mutation callback fails", func() {
			e := model.Event{ID: id("e2"), UserID: id("u1"), Kind: model.KindChatMessageSent, TS: now}
			_, err := s.UpdateUser(ctx, id("u1"), &e, func(u *model.User) error {
				u.Credits = 0
				return errRejected
			})

			Convey("Then nothing is written", func() {
				So(errors.Is(err, errRejected), ShouldBeTrue)
				got, _ := s.GetUser(ctx, id("u1"))
				So(got.Credits, ShouldEqual, 100)
				events, _ := s.ListEvents(ctx, id("u1"))
				So(events, ShouldBeEmpty)
			})
		})

		Convey("When updating an unknown user", func() {
			_, err := s.UpdateUser(ctx, id("ghost"), nil, func(*model.User) error { return nil })
			So(errors.Is(err, repository.ErrUserNotFound), ShouldBeTrue)
		})

		Convey("When fetching users by id", func() {
			So(s.CreateUser(ctx, model.NewUser(id("u2"), "Bo", 0, now)), ShouldBeNil)
			users, err := s.GetUsers(ctx, []string{id("u2"), id("ghost")})
			So(err, ShouldBeNil)
			So(users, ShouldHaveLength, 1)
			So(users[0].ID, ShouldEqual, id("u2"))
		})

		Convey("When many goroutines update the same user", func() {
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					e := model.Event{ID: id(fmt.Sprintf("c%d", i)), UserID: id("u1"), Kind: model.KindChatMessageSent, TS: now}
					_, _ = s.UpdateUser(ctx, id("u1"), &e, func(u *model.User) error {
						u.Points++
						return nil
					})
				}(i)
			}
			wg.Wait()

			Convey("Then every update is applied", func() {
				u, _ := s.GetUser(ctx, id("u1"))
				So(u.Points, ShouldEqual, 20)
				events, _ := s.ListEvents(ctx, id("u1"))
				So(events, ShouldHaveLength, 20)
			})
		})
	})
}

func TestMemoryStore(t *testing.T) {
	Convey("MemoryStore", t, func() {
		storeContract(func() repository.Store { return repository.NewMemoryStore() })
	})

	Convey("Given an empty MemoryStore", t, func() {
		s := repository.NewMemoryStore()
		n, err := s.CountUsers(context.Background())
		So(err, ShouldBeNil)
		So(n, ShouldEqual, 0)
		users, _ := s.ListUsers(context.Background())
		So(users, ShouldBeEmpty)
		So(s.Close(), ShouldBeNil)
	})
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("EDUQUEST_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("EDUQUEST_TEST_DATABASE_URL not set")
	}

	Convey("PostgresStore", t, func() {
		store, err := repository.NewPostgresStore(context.Background(), url, repository.WithMaxConns(4))
		So(err, ShouldBeNil)
		Reset(func() { _ = store.Close() })

		storeContract(func() repository.Store { return store })
	})
}
