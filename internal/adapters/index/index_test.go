package index_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/okian/eduquest/internal/adapters/index"
	"github.com/okian/eduquest/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func user(id string, points int, offset time.Duration) model.User {
	u := model.NewUser(id, id, 0, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(offset))
	u.Points = points
	return u
}

func indexContract(newIndex func() index.Index) {
	ctx := context.Background()

	Convey("Given an index with points 50, 200, 200, 10", func() {
		idx := newIndex()
		for i, p := range []int{50, 200, 200, 10} {
			So(idx.Upsert(ctx, user(fmt.Sprintf("u%d", i+1), p, time.Duration(i)*time.Minute)), ShouldBeNil)
		}

		Convey("When asking for the top 1", func() {
			ids, err := idx.Candidates(ctx, 1)

			Convey("Then every user tied at the boundary is returned", func() {
				So(err, ShouldBeNil)
				So(ids, ShouldHaveLength, 2)
				So(ids, ShouldContain, "u2")
				So(ids, ShouldContain, "u3")
			})
		})

		Convey("When asking for more than exist", func() {
			ids, err := idx.Candidates(ctx, 10)
			So(err, ShouldBeNil)
			So(ids, ShouldHaveLength, 4)
		})

		Convey("When a user's points change", func() {
			So(idx.Upsert(ctx, user("u4", 500, 3*time.Minute)), ShouldBeNil)
			ids, err := idx.Candidates(ctx, 1)
			So(err, ShouldBeNil)
			So(ids, ShouldResemble, []string{"u4"})
			n, _ := idx.Len(ctx)
			So(n, ShouldEqual, 4)
		})

		Convey("When the index is rebuilt", func() {
			So(idx.Rebuild(ctx, []model.User{user("x", 1, 0)}), ShouldBeNil)
			n, _ := idx.Len(ctx)
			So(n, ShouldEqual, 1)
			ids, _ := idx.Candidates(ctx, 3)
			So(ids, ShouldResemble, []string{"x"})
		})

		Convey("When the limit is not positive", func() {
			_, err := idx.Candidates(ctx, 0)
			So(errors.Is(err, index.ErrInvalidLimit), ShouldBeTrue)
		})
	})
}

func TestTreap(t *testing.T) {
	Convey("Treap", t, func() {
		indexContract(func() index.Index { return index.NewTreap() })
	})

	Convey("Given a large treap", t, func() {
		ctx := context.Background()
		tr := index.NewTreap()
		for i := 0; i < 1000; i++ {
			_ = tr.Upsert(ctx, user(fmt.Sprintf("u%04d", i), i%100, time.Duration(i)))
		}

		ids, err := tr.Candidates(ctx, 5)

		Convey("Then only the top scores and their ties come back in rank order", func() {
			So(err, ShouldBeNil)
			So(ids, ShouldHaveLength, 10)
			So(ids[0], ShouldEqual, "u0099")
			So(ids[9], ShouldEqual, "u0999")
		})
	})
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("EDUQUEST_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("EDUQUEST_TEST_REDIS_ADDR not set")
	}

	Convey("Redis", t, func() {
		ctx := context.Background()
		key := "eduquest:test:" + uuid.NewString()
		idx, err := index.DialRedis(ctx, addr, "", 0, key)
		So(err, ShouldBeNil)
		Reset(func() {
			_ = idx.Rebuild(ctx, nil)
			_ = idx.Close()
		})

		indexContract(func() index.Index { return idx })
	})
}
