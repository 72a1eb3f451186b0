package leaderboard_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/okian/eduquest/internal/domain/leaderboard"
	"github.com/okian/eduquest/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func usersWithPoints(points ...int) []model.User {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.User, len(points))
	for i, p := range points {
		u := model.NewUser(fmt.Sprintf("u%d", i+1), fmt.Sprintf("User %d", i+1), 0, base.Add(time.Duration(i)*time.Minute))
		u.Points = p
		u.Level = 1
		out[i] = u
	}
	return out
}

func TestBuild(t *testing.T) {
	Convey("Given users with points 50, 200, 200, 10", t, func() {
		users := usersWithPoints(50, 200, 200, 10)

		entries := leaderboard.Build(users, 10)

		Convey("Then they are ranked descending with ties in registration order", func() {
			So(entries, ShouldHaveLength, 4)
			var points, ranks []int
			var ids []string
			for _, e := range entries {
				points = append(points, e.Points)
				ranks = append(ranks, e.Rank)
				ids = append(ids, e.UserID)
			}
			So(points, ShouldResemble, []int{200, 200, 50, 10})
			So(ranks, ShouldResemble, []int{1, 2, 3, 4})
			So(ids, ShouldResemble, []string{"u2", "u3", "u1", "u4"})
		})

		Convey("Then the input slice is left in place", func() {
			So(users[0].ID, ShouldEqual, "u1")
		})
	})

	Convey("Given tied users registered at the same instant", t, func() {
		users := usersWithPoints(5, 5)
		users[0].ID, users[1].ID = "b", "a"
		users[1].CreatedAt = users[0].CreatedAt

		entries := leaderboard.Build(users, 0)
		So(entries[0].UserID, ShouldEqual, "a")
		So(entries[1].UserID, ShouldEqual, "b")
	})

	Convey("Given more users than the limit", t, func() {
		points := make([]int, 25)
		for i := range points {
			points[i] = i
		}
		users := usersWithPoints(points...)

		Convey("When the limit is not positive", func() {
			entries := leaderboard.Build(users, 0)
			So(entries, ShouldHaveLength, leaderboard.DefaultLimit)
			So(entries[0].Points, ShouldEqual, 24)
		})

		Convey("When the limit is 3", func() {
			entries := leaderboard.Build(users, 3)
			So(entries, ShouldHaveLength, 3)
			So(entries[2].Rank, ShouldEqual, 3)
			So(entries[2].Points, ShouldEqual, 22)
		})
	})

	Convey("Given no users", t, func() {
		So(leaderboard.Build(nil, 5), ShouldBeEmpty)
	})
}
